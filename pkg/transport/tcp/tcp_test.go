package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	connCh := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			connCh <- conn
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pump, err := Dial(ctx, ln.Addr().String())
	require.NoError(t, err)
	go pump.Run(ctx)

	var peer net.Conn
	select {
	case peer = <-connCh:
	case <-time.After(time.Second):
		t.Fatal("accept timeout")
	}
	defer peer.Close()

	_, err = peer.Write([]byte{0xAA, 0x55})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return pump.Buffered() == 2 }, time.Second, time.Millisecond)

	_, err = pump.Write([]byte{0x01})
	require.NoError(t, err)
	buf := make([]byte, 1)
	peer.SetReadDeadline(time.Now().Add(time.Second))
	_, err = peer.Read(buf)
	require.NoError(t, err)
	require.Equal(t, byte(0x01), buf[0])
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	_, err = Dial(context.Background(), addr)
	require.Error(t, err)
}
