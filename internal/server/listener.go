package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrNoAvailablePort は候補のポートがすべて使用中のときに返される
var ErrNoAvailablePort = errors.New("使用可能なポートが見つかりません")

// PortScanner は候補ポートを順番に試してリッスンする
type PortScanner struct {
	// Listen はソケットを開く関数。nil なら net.Listen を使う。
	Listen func(network, address string) (net.Listener, error)
}

// ListenFirst は ports を先頭から順に試し、最初にバインドできたリスナーとポート番号を返す
//
// address はポート番号からリッスンアドレスを作る。nil なら全インターフェース。
// 個々のポートのバインド失敗は無視して次のポートへ進む。
// すべて失敗した場合は ErrNoAvailablePort をラップしたエラーを返す。
func (p *PortScanner) ListenFirst(ports []int, address func(port int) string) (net.Listener, int, error) {
	if len(ports) == 0 {
		return nil, 0, ErrNoAvailablePort
	}

	listen := net.Listen
	if p != nil && p.Listen != nil {
		listen = p.Listen
	}
	if address == nil {
		address = func(port int) string { return net.JoinHostPort("", strconv.Itoa(port)) }
	}

	for _, port := range ports {
		ln, err := listen("tcp", address(port))
		if err != nil {
			continue
		}
		return ln, port, nil
	}

	return nil, 0, fmt.Errorf("%w (%d-%d)", ErrNoAvailablePort, ports[0], ports[len(ports)-1])
}
