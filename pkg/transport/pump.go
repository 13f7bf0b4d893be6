package transport

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/evlink/pkg/framework"
)

// DefaultPumpLimit is the default limit of bytes a Pump buffers.
const DefaultPumpLimit = 64 * 1024

// Pump adapts a blocking io.ReadWriter into a Transport.
// Run must be running (usually by a framework Runner) to receive bytes.
type Pump struct {
	ReadWriter io.ReadWriter
	// Notify is called from the reader goroutine when bytes arrive.
	Notify func()
	// Limit caps buffered bytes; extra received bytes are dropped.
	Limit int

	buf     bytes.Buffer
	err     error
	dropped uint64
	lock    sync.Mutex
}

// NewPump creates a Pump.
func NewPump(rw io.ReadWriter) *Pump {
	return &Pump{ReadWriter: rw, Limit: DefaultPumpLimit}
}

// Buffered implements Transport. A pending read error is reported as one
// readable byte so the error is surfaced by the next Read.
func (p *Pump) Buffered() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	if n := p.buf.Len(); n > 0 || p.err == nil {
		return n
	}
	return 1
}

// Read implements Transport. It never blocks.
func (p *Pump) Read(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.buf.Len() == 0 {
		return 0, p.err
	}
	return p.buf.Read(b)
}

// Write implements Transport.
func (p *Pump) Write(b []byte) (int, error) {
	return p.ReadWriter.Write(b)
}

// Dropped returns the number of bytes dropped because of Limit.
func (p *Pump) Dropped() uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.dropped
}

// Close closes the underlying stream if it is an io.Closer.
func (p *Pump) Close() error {
	if c, ok := p.ReadWriter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Run implements Runnable. The stream is closed when ctx is canceled.
func (p *Pump) Run(ctx context.Context) error {
	return framework.RunWithContextCancel(ctx, func() { p.Close() }, func() error {
		return p.readLoop(ctx)
	})
}

func (p *Pump) readLoop(ctx context.Context) error {
	buf := make([]byte, 256)
	for {
		n, err := p.ReadWriter.Read(buf)
		if n > 0 {
			p.append(buf[:n])
			if fn := p.Notify; fn != nil {
				fn()
			}
		}
		if err != nil {
			p.lock.Lock()
			p.err = err
			p.lock.Unlock()
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (p *Pump) append(b []byte) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.Limit > 0 {
		if room := p.Limit - p.buf.Len(); room < len(b) {
			if room < 0 {
				room = 0
			}
			p.dropped += uint64(len(b) - room)
			glog.Warningf("pump buffer full, dropped %d bytes", len(b)-room)
			b = b[:room]
		}
	}
	p.buf.Write(b)
}
