// Package websocket carries the link over a websocket connection.
package websocket

import (
	"fmt"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/evlink/pkg/transport"
)

// Dial connects to url and wraps the connection in a Pump.
// Frames are sent as binary messages.
func Dial(url, origin string) (*transport.Pump, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.PayloadType = websocket.BinaryFrame
	glog.Infof("connected to %s", url)
	return transport.NewPump(conn), nil
}

// Handler returns a websocket.Handler which passes each accepted connection
// to fn wrapped in a Pump. The connection is closed when fn returns.
func Handler(fn func(*transport.Pump)) websocket.Handler {
	return func(conn *websocket.Conn) {
		conn.PayloadType = websocket.BinaryFrame
		glog.Infof("peer connected from %s", conn.Request().RemoteAddr)
		fn(transport.NewPump(conn))
	}
}
