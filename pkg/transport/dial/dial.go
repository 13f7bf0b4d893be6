// Package dial opens a transport from an address string.
package dial

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/robotalks/evlink/pkg/transport"
	"github.com/robotalks/evlink/pkg/transport/serial"
	"github.com/robotalks/evlink/pkg/transport/tcp"
	"github.com/robotalks/evlink/pkg/transport/websocket"
)

// DefaultOrigin is the websocket origin used when none is given.
const DefaultOrigin = "http://localhost/"

// Open opens a transport. Supported addresses:
//
//   /dev/ttyUSB0                      serial device at the default baud rate
//   serial:///dev/ttyUSB0?baud=9600   serial device
//   tcp://host:port                   serial-over-TCP bridge
//   listen://:port                    accept one TCP peer
//   ws://host/path?origin=...         websocket
func Open(ctx context.Context, addr string) (*transport.Pump, error) {
	if strings.HasPrefix(addr, "/") {
		return serial.Open(serial.Config{Device: addr})
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid transport address %q: %w", addr, err)
	}
	switch u.Scheme {
	case "serial":
		conf := serial.Config{Device: u.Path}
		if baud := u.Query().Get("baud"); baud != "" {
			if conf.BaudRate, err = strconv.Atoi(baud); err != nil {
				return nil, fmt.Errorf("invalid baud rate %q: %w", baud, err)
			}
		}
		return serial.Open(conf)
	case "tcp":
		return tcp.Dial(ctx, u.Host)
	case "listen":
		return tcp.Listen(ctx, u.Host)
	case "ws", "wss":
		q := u.Query()
		origin := q.Get("origin")
		if origin == "" {
			origin = DefaultOrigin
		}
		q.Del("origin")
		u.RawQuery = q.Encode()
		return websocket.Dial(u.String(), origin)
	}
	return nil, fmt.Errorf("unsupported transport %q", addr)
}
