package transport

import (
	"bytes"
	"io"
	"sync"
)

type pipeBuffer struct {
	buf    bytes.Buffer
	closed bool
	lock   sync.Mutex
}

// Loopback is one end of an in-memory connected pair.
// Bytes written to one end become readable at the other.
type Loopback struct {
	rx *pipeBuffer
	tx *pipeBuffer
}

// Pipe creates a connected pair of Loopback ends.
func Pipe() (*Loopback, *Loopback) {
	a, b := &pipeBuffer{}, &pipeBuffer{}
	return &Loopback{rx: a, tx: b}, &Loopback{rx: b, tx: a}
}

// Buffered implements Transport.
func (l *Loopback) Buffered() int {
	l.rx.lock.Lock()
	defer l.rx.lock.Unlock()
	return l.rx.buf.Len()
}

// Read implements Transport. It returns io.EOF once the peer is closed and
// all bytes are consumed.
func (l *Loopback) Read(p []byte) (int, error) {
	l.rx.lock.Lock()
	defer l.rx.lock.Unlock()
	if l.rx.buf.Len() == 0 {
		if l.rx.closed {
			return 0, io.EOF
		}
		return 0, nil
	}
	return l.rx.buf.Read(p)
}

// Write implements Transport.
func (l *Loopback) Write(p []byte) (int, error) {
	l.tx.lock.Lock()
	defer l.tx.lock.Unlock()
	if l.tx.closed {
		return 0, io.ErrClosedPipe
	}
	return l.tx.buf.Write(p)
}

// Close closes the sending direction of this end.
func (l *Loopback) Close() error {
	l.tx.lock.Lock()
	l.tx.closed = true
	l.tx.lock.Unlock()
	return nil
}
