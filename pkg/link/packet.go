package link

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame layout constants.
const (
	StartByte byte = 0xAA
	EndByte   byte = 0x55

	MaxPayload   = 512
	HeaderSize   = 5 // start, command, len lo, len hi, sequence
	FooterSize   = 2 // checksum, end
	MinFrameSize = HeaderSize + FooterSize
	MaxFrameSize = MinFrameSize + MaxPayload
)

// AckCommand is the response code used for acknowledgements.
const AckCommand byte = 0x81

// Packet is one unit on the link.
type Packet struct {
	Command  byte
	Sequence byte
	Payload  []byte
}

// IsResponse indicates the command code carries the response bit.
func (p Packet) IsResponse() bool {
	return p.Command&0x80 != 0
}

// String implements fmt.Stringer.
func (p Packet) String() string {
	return fmt.Sprintf("CMD=0x%02X LEN=%d SEQ=%d", p.Command, len(p.Payload), p.Sequence)
}

// Checksum computes the XOR checksum over the logical fields.
func Checksum(cmd, seq byte, payload []byte) byte {
	n := len(payload)
	sum := cmd ^ byte(n) ^ byte(n>>8) ^ seq
	for _, b := range payload {
		sum ^= b
	}
	return sum
}

// Encode builds the wire frame.
func Encode(cmd, seq byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, ErrInvalidParameter
	}
	b := make([]byte, MinFrameSize+len(payload))
	b[0], b[1] = StartByte, cmd
	binary.LittleEndian.PutUint16(b[2:4], uint16(len(payload)))
	b[4] = seq
	copy(b[HeaderSize:], payload)
	b[len(b)-2] = Checksum(cmd, seq, payload)
	b[len(b)-1] = EndByte
	return b, nil
}

// Bytes returns the encoded frame.
func (p Packet) Bytes() ([]byte, error) {
	return Encode(p.Command, p.Sequence, p.Payload)
}

// WriteTo writes the encoded frame with a single Write.
func (p Packet) WriteTo(w io.Writer) (int64, error) {
	b, err := p.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// HeaderLength returns the payload length declared in a header.
func HeaderLength(header []byte) int {
	return int(binary.LittleEndian.Uint16(header[2:4]))
}

// Decode validates and assembles a packet from peeked windows.
// header must be HeaderSize bytes and footer FooterSize bytes.
func Decode(header, payload, footer []byte) (Packet, error) {
	if l := HeaderLength(header); l > MaxPayload {
		return Packet{}, &FrameError{Err: ErrLengthOutOfRange, Expected: MaxPayload, Actual: l}
	}
	if footer[1] != EndByte {
		return Packet{}, &FrameError{Err: ErrBadEndByte, Expected: int(EndByte), Actual: int(footer[1])}
	}
	pkt := Packet{Command: header[1], Sequence: header[4]}
	if len(payload) > 0 {
		pkt.Payload = append([]byte(nil), payload...)
	}
	if sum := Checksum(pkt.Command, pkt.Sequence, pkt.Payload); sum != footer[0] {
		return Packet{}, &FrameError{Err: ErrChecksumMismatch, Expected: int(sum), Actual: int(footer[0])}
	}
	return pkt, nil
}
