package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CORSヘッダー
const (
	HeaderAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAllowMethods = "Access-Control-Allow-Methods"
	HeaderAllowHeaders = "Access-Control-Allow-Headers"

	AllowOrigin  = "*"
	AllowMethods = "GET, POST, OPTIONS"
	AllowHeaders = "*"

	// HeaderRequestID はリクエストIDを返すヘッダー
	HeaderRequestID = "X-Request-ID"
)

// setCORSHeaders はレスポンスヘッダーにCORSヘッダーを追加する
func setCORSHeaders(h http.Header) {
	h.Set(HeaderAllowOrigin, AllowOrigin)
	h.Set(HeaderAllowMethods, AllowMethods)
	h.Set(HeaderAllowHeaders, AllowHeaders)
}

// WithCORS は next のすべてのレスポンスにCORSヘッダーを付けるハンドラを返す
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// ステータスが書かれる前に設定しておけばエラーレスポンスにも付く
		setCORSHeaders(w.Header())
		next.ServeHTTP(w, r)
	})
}

// requestID はリクエストIDを付与する。既存の X-Request-ID はそのまま使う。
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// requestLogger は1リクエストにつき1行ログを出力する
func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"bytes":      c.Writer.Size(),
			"latency":    time.Since(start),
			"remote":     c.ClientIP(),
			"request_id": c.GetString(HeaderRequestID),
		})

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("リクエスト処理に失敗しました")
		case status >= http.StatusBadRequest:
			entry.Warn("リクエストを処理しました")
		default:
			entry.Info("リクエストを処理しました")
		}
	}
}

// recovery はハンドラ内のpanicを500レスポンスに変換する
func recovery(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithFields(logrus.Fields{
					"path":       c.Request.URL.Path,
					"request_id": c.GetString(HeaderRequestID),
					"panic":      err,
				}).Error("ハンドラでpanicが発生しました")
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
