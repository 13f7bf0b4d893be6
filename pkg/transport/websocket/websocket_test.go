package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/evlink/pkg/transport"
)

func TestDialAndHandler(t *testing.T) {
	// the server side echoes every byte back.
	srv := httptest.NewServer(Handler(func(pump *transport.Pump) {
		buf := make([]byte, 64)
		for {
			n, err := pump.ReadWriter.Read(buf)
			if err != nil {
				return
			}
			if _, err = pump.Write(buf[:n]); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	pump, err := Dial("ws"+strings.TrimPrefix(srv.URL, "http"), srv.URL)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pump.Run(ctx)

	_, err = pump.Write([]byte{0xAA, 0x02, 0x00, 0x00, 0x05, 0x07, 0x55})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return pump.Buffered() == 7 }, time.Second, time.Millisecond)
	buf := make([]byte, 7)
	n, err := pump.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Equal(t, byte(0x55), buf[6])
}
