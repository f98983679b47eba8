package server

import (
	"errors"
	"net"
	"strings"
	"syscall"
	"testing"

	"forestserve/internal/config"
)

// fakeListener はポート選択テスト用のダミーリスナー
type fakeListener struct {
	addr string
}

func (l *fakeListener) Accept() (net.Conn, error) { return nil, errors.New("not implemented") }
func (l *fakeListener) Close() error              { return nil }
func (l *fakeListener) Addr() net.Addr {
	addr, _ := net.ResolveTCPAddr("tcp", l.addr)
	return addr
}

// busyPorts は指定アドレスだけ使用中として扱う Listen 関数を返す
func busyPorts(tried *[]string, busy ...string) func(string, string) (net.Listener, error) {
	return func(network, address string) (net.Listener, error) {
		*tried = append(*tried, address)
		for _, b := range busy {
			if address == b {
				return nil, &net.OpError{Op: "listen", Net: network, Err: syscall.EADDRINUSE}
			}
		}
		return &fakeListener{addr: address}, nil
	}
}

// localAddress は 127.0.0.1 でリッスンするアドレス関数を返す
func localAddress() func(int) string {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	return cfg.ListenAddress
}

func TestListenFirst(t *testing.T) {
	ports := []int{8000, 8001, 8002}

	testCases := []struct {
		name      string
		busy      []string
		wantPort  int
		wantTried int
		wantErr   bool
	}{
		{"先頭のポートが空いている", nil, 8000, 1, false},
		{"先頭のポートが使用中", []string{"127.0.0.1:8000"}, 8001, 2, false},
		{"最後のポートだけ空いている", []string{"127.0.0.1:8000", "127.0.0.1:8001"}, 8002, 3, false},
		{"すべて使用中", []string{"127.0.0.1:8000", "127.0.0.1:8001", "127.0.0.1:8002"}, 0, 3, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var tried []string
			p := &PortScanner{Listen: busyPorts(&tried, tc.busy...)}

			ln, port, err := p.ListenFirst(ports, localAddress())
			if tc.wantErr {
				if !errors.Is(err, ErrNoAvailablePort) {
					t.Fatalf("ErrNoAvailablePort が期待されましたが: %v", err)
				}
				if !strings.Contains(err.Error(), "8000-8002") {
					t.Errorf("エラーに試行範囲が含まれていません: %v", err)
				}
			} else {
				if err != nil {
					t.Fatalf("予期しないエラー: %v", err)
				}
				if ln == nil {
					t.Fatal("リスナーが nil です")
				}
			}

			if port != tc.wantPort {
				t.Errorf("ポートが違います: got %d, want %d", port, tc.wantPort)
			}
			if len(tried) != tc.wantTried {
				t.Errorf("試行回数が違います: got %d (%v), want %d", len(tried), tried, tc.wantTried)
			}
			// 昇順に1つずつ試している
			for i, addr := range tried {
				want := net.JoinHostPort("127.0.0.1", []string{"8000", "8001", "8002"}[i])
				if addr != want {
					t.Errorf("%d 回目の試行アドレスが違います: got %s, want %s", i, addr, want)
				}
			}
		})
	}
}

func TestListenFirstDefaultAddress(t *testing.T) {
	var tried []string
	p := &PortScanner{Listen: busyPorts(&tried)}

	if _, port, err := p.ListenFirst([]int{8000}, nil); err != nil || port != 8000 {
		t.Fatalf("予期しない結果: port=%d err=%v", port, err)
	}
	if len(tried) != 1 || tried[0] != ":8000" {
		t.Errorf("全インターフェースのアドレスになっていません: %v", tried)
	}
}

func TestListenFirstEmpty(t *testing.T) {
	_, _, err := (&PortScanner{}).ListenFirst(nil, localAddress())
	if !errors.Is(err, ErrNoAvailablePort) {
		t.Errorf("ErrNoAvailablePort が期待されましたが: %v", err)
	}
}

// TestListenFirstRealSocket は実際に使用中のポートを飛ばすことを確認する
func TestListenFirstRealSocket(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ポートの確保に失敗しました: %v", err)
	}
	defer occupied.Close()
	busy := occupied.Addr().(*net.TCPAddr).Port

	// 使用中のポートだけを候補にすると見つからない
	var p PortScanner
	if _, _, err := p.ListenFirst([]int{busy}, localAddress()); !errors.Is(err, ErrNoAvailablePort) {
		t.Fatalf("ErrNoAvailablePort が期待されましたが: %v", err)
	}

	// 空いているポートを後ろに置くとそちらが選ばれる
	free := freePort(t)
	ln, port, err := p.ListenFirst([]int{busy, free}, localAddress())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	defer ln.Close()
	if port != free {
		t.Errorf("ポートが違います: got %d, want %d", port, free)
	}
}

// freePort は現在空いているポート番号を返す
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("空きポートの取得に失敗しました: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
