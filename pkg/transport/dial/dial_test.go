package dial

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		if conn, err := ln.Accept(); err == nil {
			conn.Close()
		}
	}()
	pump, err := Open(context.Background(), "tcp://"+ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, pump.Close())
}

func TestOpenInvalid(t *testing.T) {
	testCases := []string{
		"bogus://somewhere",
		"serial:///dev/ttyUSB0?baud=fast",
		"%zz",
	}
	for _, addr := range testCases {
		t.Run(addr, func(t *testing.T) {
			_, err := Open(context.Background(), addr)
			require.Error(t, err)
		})
	}
}
