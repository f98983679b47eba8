package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"

	"forestserve/internal/config"
	"forestserve/internal/logger"
	"forestserve/internal/server"
)

func main() {
	gin.SetMode(gin.ReleaseMode)
	os.Exit(run(context.Background(), os.Stdout, os.Stderr))
}

// run はサーバーを起動し、終了コードを返す
func run(ctx context.Context, stdout, stderr io.Writer) int {
	red := color.New(color.FgRed)

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		red.Fprintf(stderr, "設定の読み込みに失敗しました: %v\n", err)
		return 1
	}

	log := logger.New(cfg.LogLevel, stderr)

	// サーバーを作成
	srv := server.New(cfg, server.WithLogger(log), server.WithOutput(stdout))

	// サーバーを起動
	if err := srv.Start(ctx); err != nil {
		if errors.Is(err, server.ErrNoAvailablePort) {
			red.Fprintf(stdout, "%v\n", err)
			return 1
		}
		red.Fprintf(stderr, "サーバーの起動に失敗しました: %v\n", err)
		return 1
	}

	return 0
}
