package link

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter indicates the payload exceeds MaxPayload.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrBufferOverflow indicates the receive ring was full.
	ErrBufferOverflow = errors.New("buffer overflow")
	// ErrChecksumMismatch indicates a frame failed checksum validation.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrBadEndByte indicates the frame end sentinel is wrong.
	ErrBadEndByte = errors.New("bad end byte")
	// ErrLengthOutOfRange indicates the declared payload length is too large.
	ErrLengthOutOfRange = errors.New("length out of range")
	// ErrParseTimeout indicates a partial frame went stale and was dropped.
	ErrParseTimeout = errors.New("parse timeout")
	// ErrNotConnected indicates no valid packet was seen recently.
	ErrNotConnected = errors.New("not connected")
	// ErrNoReply indicates no response arrived for a command in time.
	ErrNoReply = errors.New("no reply")
)

// FrameError describes why a candidate frame was rejected.
type FrameError struct {
	Err      error
	Expected int
	Actual   int
}

// Error implements error.
func (e *FrameError) Error() string {
	switch e.Err {
	case ErrChecksumMismatch:
		return fmt.Sprintf("%v: calc=0x%02x recv=0x%02x", e.Err, e.Expected, e.Actual)
	case ErrBadEndByte:
		return fmt.Sprintf("%v: 0x%02x", e.Err, e.Actual)
	case ErrLengthOutOfRange:
		return fmt.Sprintf("%v: %d > %d", e.Err, e.Actual, e.Expected)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying sentinel.
func (e *FrameError) Unwrap() error {
	return e.Err
}

// StatusError wraps a non-success status code from an ACK.
type StatusError struct {
	Status byte
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("status error %d", e.Status)
}
