//go:build unix

package server

import (
	"context"
	"strings"
	"syscall"
	"testing"
)

// TestServerInterrupt は SIGINT でサーバーが終了することをテストする
func TestServerInterrupt(t *testing.T) {
	root, _ := newFixtureRoot(t)
	out := &syncBuffer{}
	srv := newTestServer(t, root, WithOutput(out))
	srv.config.Server.BasePort = freePort(t)
	srv.config.Server.PortRange = 1

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(context.Background())
	}()

	// バナー表示時点でシグナルは登録済み
	waitForOutput(t, out, "Ctrl+C")

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("シグナルの送信に失敗しました: %v", err)
	}

	if err := waitForStop(t, errCh); err != nil {
		t.Fatalf("シグナルによる停止でエラーが発生しました: %v", err)
	}
	if !strings.Contains(out.String(), "サーバーが終了しました") {
		t.Errorf("終了メッセージが出力されていません: %s", out.String())
	}
}
