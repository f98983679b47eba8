package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// allowHeader は静的ファイルハンドラが受け付けるメソッド
const allowHeader = "GET, HEAD, OPTIONS"

// StaticHandler はルートディレクトリ配下のファイルを配信する
type StaticHandler struct {
	fileServer http.Handler
}

// NewStaticHandler は root を配信するハンドラを作成する
//
// パスの解決、ディレクトリの index.html、拡張子によるContent-Type、
// 存在しないパスの404、ルート外へのトラバーサル拒否は net/http の規則に従う。
func NewStaticHandler(root string) *StaticHandler {
	return &StaticHandler{
		fileServer: http.FileServer(http.Dir(root)),
	}
}

// ServeFile は GET / HEAD リクエストに対してファイルを返す
func (h *StaticHandler) ServeFile(c *gin.Context) {
	h.fileServer.ServeHTTP(c.Writer, c.Request)
}

// Preflight は OPTIONS リクエストに本文なしで応答する
func (h *StaticHandler) Preflight(c *gin.Context) {
	c.Header("Allow", allowHeader)
	c.AbortWithStatus(http.StatusNoContent)
}

// MethodNotAllowed は未対応メソッドに405を返す
func (h *StaticHandler) MethodNotAllowed(c *gin.Context) {
	c.Header("Allow", allowHeader)
	c.AbortWithStatus(http.StatusMethodNotAllowed)
}

// NotFound はどのルートにも一致しないリクエストに404を返す
//
// "OPTIONS *" のようにパスが / で始まらない OPTIONS はここに来るので Preflight と同じ応答にする。
func (h *StaticHandler) NotFound(c *gin.Context) {
	if c.Request.Method == http.MethodOptions {
		h.Preflight(c)
		return
	}
	c.AbortWithStatus(http.StatusNotFound)
}
