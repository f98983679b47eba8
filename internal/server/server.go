package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"forestserve/internal/config"
)

// Server は静的ファイルを配信するHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	handler    http.Handler
	httpServer *http.Server
	scanner    *PortScanner
	logger     logrus.FieldLogger
	out        io.Writer

	listener net.Listener
	port     int
}

// Option は Server の生成オプション
type Option func(*Server)

// WithLogger はリクエストログ等の出力先ロガーを指定する
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithOutput は起動・停止メッセージの出力先を指定する
func WithOutput(w io.Writer) Option {
	return func(s *Server) { s.out = w }
}

// WithPortScanner はポート選択に使う PortScanner を指定する
func WithPortScanner(p *PortScanner) Option {
	return func(s *Server) { s.scanner = p }
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		config:  cfg,
		scanner: &PortScanner{},
		logger:  logrus.StandardLogger(),
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = s.setupRoutes()

	// CORSヘッダーはgin より外側で付けるので404/405/500にも含まれる
	s.handler = WithCORS(s.engine)
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,

		// "OPTIONS *" も Handler に渡してCORSヘッダーを付ける
		DisableGeneralOptionsHandler: true,
	}

	return s
}

// setupRoutes はginエンジンとルートを設定する
func (s *Server) setupRoutes() *gin.Engine {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(requestID(), requestLogger(s.logger), recovery(s.logger))

	static := NewStaticHandler(s.config.Root)
	engine.GET("/*filepath", static.ServeFile)
	engine.HEAD("/*filepath", static.ServeFile)
	engine.OPTIONS("/*filepath", static.Preflight)
	engine.NoMethod(static.MethodNotAllowed)
	engine.NoRoute(static.NotFound)

	return engine
}

// Handler はHTTPハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Listen は候補ポートを順に試してリッスンを開始し、選ばれたポートを返す
func (s *Server) Listen() (int, error) {
	if s.listener != nil {
		return s.port, nil
	}

	ln, port, err := s.scanner.ListenFirst(s.config.Candidates(), s.config.ListenAddress)
	if err != nil {
		return 0, err
	}

	s.listener = ln
	s.port = port
	s.logger.WithField("addr", ln.Addr().String()).Debug("リッスンを開始しました")

	return port, nil
}

// Port はバインドしたポート番号を返す。未バインドなら0。
func (s *Server) Port() int {
	return s.port
}

// Addr はリッスンしているアドレスを返す
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start はサーバーを起動し、停止要求まで処理を続ける
//
// コンテキストのキャンセル、SIGINT、SIGTERM のいずれかで停止し nil を返す。
func (s *Server) Start(ctx context.Context) error {
	if _, err := s.Listen(); err != nil {
		return err
	}

	// シグナルハンドリングはバナー表示より先に登録する
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	listener := s.listener
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの実行に失敗: %w", err)
		}
	}()

	// 即座に失敗した場合はバナーを出さない
	select {
	case err := <-shutdownCh:
		return err
	default:
	}

	s.printBanner()

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.logger.Debug("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.WithField("signal", sig.String()).Debug("シグナルを受信しました")
	case err := <-shutdownCh:
		return err
	}

	color.New(color.FgYellow).Fprintln(s.out, "\n🛑 サーバーが終了しました")

	return s.Shutdown()
}

// Shutdown はサーバーを停止する
//
// ShutdownTimeout 内に処理中のリクエストが終わらなければ接続を強制的に閉じる。
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if err == nil {
		s.logger.Debug("サーバーが正常にシャットダウンされました")
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("処理中のリクエストを待たずに接続を閉じます")
		if cerr := s.httpServer.Close(); cerr != nil {
			return fmt.Errorf("サーバーのクローズに失敗: %w", cerr)
		}
		return nil
	}

	return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
}

// printBanner は起動メッセージを表示する
func (s *Server) printBanner() {
	green := color.New(color.FgGreen, color.Bold)
	green.Fprintln(s.out, "🎮 ゲームサーバーが起動しました!")
	fmt.Fprintf(s.out, "🌐 ブラウザで http://localhost:%d を開いてください\n", s.port)
	fmt.Fprintf(s.out, "📂 配信ディレクトリ: %s\n", s.config.Root)
	fmt.Fprintln(s.out, "🛑 サーバーを停止するには Ctrl+C を押してください")
}
