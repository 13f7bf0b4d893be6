// Package tcp connects to serial-over-TCP bridges.
package tcp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/evlink/pkg/transport"
)

// DefaultDialTimeout is the connect timeout used by Dial.
const DefaultDialTimeout = 5 * time.Second

// Dial connects to addr and wraps the connection in a Pump.
func Dial(ctx context.Context, addr string) (*transport.Pump, error) {
	dialer := &net.Dialer{Timeout: DefaultDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	glog.Infof("connected to %s", addr)
	return transport.NewPump(conn), nil
}

// Listen accepts a single connection on addr and wraps it in a Pump.
// It is used to expose the controller side to a remote peer.
func Listen(ctx context.Context, addr string) (*transport.Pump, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	defer ln.Close()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	glog.Infof("waiting for peer on %s", ln.Addr())
	conn, err := ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("accept on %s: %w", addr, err)
	}
	glog.Infof("peer connected from %s", conn.RemoteAddr())
	return transport.NewPump(conn), nil
}
