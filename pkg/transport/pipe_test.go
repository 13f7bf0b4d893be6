package transport

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipe(t *testing.T) {
	a, b := Pipe()
	var _ Transport = a

	n, err := a.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 0, a.Buffered())
	require.Equal(t, 3, b.Buffered())

	buf := make([]byte, 2)
	n, err = b.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, buf[:n])

	_, err = b.Write([]byte{9})
	require.NoError(t, err)
	n, err = a.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{9}, buf[:n])

	n, err = a.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestPipeClose(t *testing.T) {
	a, b := Pipe()
	a.Write([]byte{5})
	require.NoError(t, a.Close())

	_, err := a.Write([]byte{6})
	require.Equal(t, io.ErrClosedPipe, err)

	buf := make([]byte, 4)
	n, err := b.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_, err = b.Read(buf)
	require.Equal(t, io.EOF, err)

	_, err = b.Write([]byte{7})
	require.NoError(t, err)
}
