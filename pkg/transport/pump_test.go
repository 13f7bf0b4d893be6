package transport

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPumpReceives(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	pump := NewPump(local)
	notified := make(chan struct{}, 16)
	pump.Notify = func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- pump.Run(ctx) }()

	require.Equal(t, 0, pump.Buffered())
	n, err := pump.Read(make([]byte, 4))
	require.NoError(t, err)
	require.Equal(t, 0, n)

	_, err = remote.Write([]byte{0xAA, 0x01, 0x02})
	require.NoError(t, err)
	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("notify timeout")
	}
	require.Eventually(t, func() bool { return pump.Buffered() == 3 }, time.Second, time.Millisecond)

	buf := make([]byte, 8)
	n, err = pump.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA, 0x01, 0x02}, buf[:n])

	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("pump not stopped")
	}
}

func TestPumpWrites(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	pump := NewPump(local)
	go func() {
		pump.Write([]byte{1, 2, 3})
	}()
	buf := make([]byte, 3)
	_, err := io.ReadFull(remote, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, buf)
}

func TestPumpSurfacesReadError(t *testing.T) {
	local, remote := net.Pipe()
	pump := NewPump(local)
	errCh := make(chan error, 1)
	go func() { errCh <- pump.Run(context.Background()) }()

	remote.Write([]byte{7})
	remote.Close()
	select {
	case err := <-errCh:
		require.Equal(t, io.EOF, err)
	case <-time.After(time.Second):
		t.Fatal("pump not stopped")
	}

	buf := make([]byte, 4)
	require.Equal(t, 1, pump.Buffered())
	n, err := pump.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, pump.Buffered())
	_, err = pump.Read(buf)
	require.Equal(t, io.EOF, err)
}

func TestPumpLimit(t *testing.T) {
	pump := NewPump(nil)
	pump.Limit = 4
	pump.append([]byte{1, 2, 3})
	pump.append([]byte{4, 5, 6})
	require.Equal(t, 4, pump.Buffered())
	require.Equal(t, uint64(2), pump.Dropped())
	pump.append([]byte{7})
	require.Equal(t, uint64(3), pump.Dropped())
}
