package link

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	testCases := []struct {
		name    string
		cmd     byte
		seq     byte
		payload []byte
		expect  []byte
	}{
		{
			name:   "empty payload",
			cmd:    0x02,
			seq:    5,
			expect: []byte{0xAA, 0x02, 0x00, 0x00, 0x05, 0x07, 0x55},
		},
		{
			name:    "ack",
			cmd:     AckCommand,
			seq:     0x10,
			payload: []byte{0x00},
			expect:  []byte{0xAA, 0x81, 0x01, 0x00, 0x10, 0x00, 0x81 ^ 0x01 ^ 0x10, 0x55},
		},
		{
			name:    "payload",
			cmd:     0x01,
			seq:     0xFF,
			payload: []byte{1, 2, 3},
			expect:  []byte{0xAA, 0x01, 0x03, 0x00, 0xFF, 1, 2, 3, 0x01 ^ 0x03 ^ 0xFF ^ 1 ^ 2 ^ 3, 0x55},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Encode(tc.cmd, tc.seq, tc.payload)
			require.NoError(t, err)
			require.Equal(t, tc.expect, b)
		})
	}
}

func TestEncodeLimits(t *testing.T) {
	b, err := Encode(0x01, 0, make([]byte, MaxPayload))
	require.NoError(t, err)
	require.Len(t, b, MaxFrameSize)
	require.Equal(t, byte(0x00), b[2])
	require.Equal(t, byte(0x02), b[3])

	_, err = Encode(0x01, 0, make([]byte, MaxPayload+1))
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestDecodeRoundTrip(t *testing.T) {
	payloads := [][]byte{nil, {0x42}, bytes.Repeat([]byte{0xAA, 0x55}, 100), make([]byte, MaxPayload)}
	for _, payload := range payloads {
		b, err := Encode(0x83, 9, payload)
		require.NoError(t, err)
		n := len(b)
		pkt, err := Decode(b[:HeaderSize], b[HeaderSize:n-FooterSize], b[n-FooterSize:])
		require.NoError(t, err)
		require.Equal(t, byte(0x83), pkt.Command)
		require.Equal(t, byte(9), pkt.Sequence)
		if len(payload) == 0 {
			require.Nil(t, pkt.Payload)
		} else {
			require.Equal(t, payload, pkt.Payload)
		}
		require.True(t, pkt.IsResponse())
	}
}

func TestDecodeErrors(t *testing.T) {
	frame := func() []byte {
		b, _ := Encode(0x01, 1, []byte{0x10, 0x20})
		return b
	}
	decode := func(b []byte) error {
		n := len(b)
		_, err := Decode(b[:HeaderSize], b[HeaderSize:n-FooterSize], b[n-FooterSize:])
		return err
	}

	t.Run("flipped payload bit", func(t *testing.T) {
		b := frame()
		b[HeaderSize] ^= 0x01
		err := decode(b)
		require.ErrorIs(t, err, ErrChecksumMismatch)
		fe, ok := err.(*FrameError)
		require.True(t, ok)
		require.NotEqual(t, fe.Expected, fe.Actual)
	})
	t.Run("bad end byte", func(t *testing.T) {
		b := frame()
		b[len(b)-1] = 0x56
		require.ErrorIs(t, decode(b), ErrBadEndByte)
	})
	t.Run("length out of range", func(t *testing.T) {
		_, err := Decode([]byte{0xAA, 0x01, 0x01, 0x02, 0x00}, nil, []byte{0x00, 0x55})
		require.ErrorIs(t, err, ErrLengthOutOfRange)
	})
}

func TestPacketWriteTo(t *testing.T) {
	var w countingWriter
	n, err := Packet{Command: 0x02, Sequence: 5}.WriteTo(&w)
	require.NoError(t, err)
	require.Equal(t, int64(MinFrameSize), n)
	require.Equal(t, 1, w.writes)
	require.Equal(t, []byte{0xAA, 0x02, 0x00, 0x00, 0x05, 0x07, 0x55}, w.buf.Bytes())
}

type countingWriter struct {
	buf    bytes.Buffer
	writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.buf.Write(p)
}
