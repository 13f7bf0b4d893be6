package link

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
)

// Transport is the byte-oriented duplex stream the link runs over.
// Read must not block when Buffered reports pending bytes.
type Transport interface {
	// Buffered returns the number of bytes readable without blocking.
	Buffered() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// PacketHandler is called when a packet is received.
type PacketHandler interface {
	HandlePacket(context.Context, *Packet)
}

// HandlePacketFunc is func type of PacketHandler.
type HandlePacketFunc func(context.Context, *Packet)

// HandlePacket implements PacketHandler.
func (f HandlePacketFunc) HandlePacket(ctx context.Context, pkt *Packet) {
	f(ctx, pkt)
}

// Observer is notified of every packet received or sent, on the goroutine
// using the Link.
type Observer interface {
	PacketReceived(*Packet)
	PacketSent(*Packet)
}

// Defaults of Link.
const (
	DefaultParseTimeout    = 1000 * time.Millisecond
	DefaultLivenessTimeout = 10000 * time.Millisecond
	DefaultOverflowDiscard = 64
)

// Status is a snapshot of link bookkeeping.
type Status struct {
	Connected  bool
	LastPacket time.Time

	TxPackets uint32
	TxBytes   uint32
	RxPackets uint32
	RxBytes   uint32

	Errors         uint32 // all recovered faults
	ChecksumErrors uint32
	TimeoutErrors  uint32
	LengthErrors   uint32
	FramingErrors  uint32
	OverflowErrors uint32
	SkippedBytes   uint32
}

// Option configures a Link.
type Option func(*Link)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Link) { l.now = now }
}

// WithParseTimeout sets how long a partial frame may stay buffered.
func WithParseTimeout(d time.Duration) Option {
	return func(l *Link) { l.ParseTimeout = d }
}

// WithLivenessTimeout sets how recent a packet must be to be connected.
func WithLivenessTimeout(d time.Duration) Option {
	return func(l *Link) { l.LivenessTimeout = d }
}

// WithOverflowDiscard sets how many old bytes are dropped on overflow.
func WithOverflowDiscard(n int) Option {
	return func(l *Link) { l.OverflowDiscard = n }
}

// WithObserver adds an Observer.
func WithObserver(o Observer) Option {
	return func(l *Link) { l.observers = append(l.observers, o) }
}

// Link owns the receive ring and the transport, runs the parse-and-dispatch
// cycle and provides the send path.
// A Link must be used from a single goroutine.
type Link struct {
	Transport Transport
	Handler   PacketHandler

	ParseTimeout    time.Duration
	LivenessTimeout time.Duration
	OverflowDiscard int

	rx        RingBuffer
	parser    Parser
	now       func() time.Time
	observers []Observer
	txSeq     byte
	lastRx    time.Time
	status    Status
	readBuf   [64]byte
}

// NewLink creates a Link over t dispatching packets to h.
func NewLink(t Transport, h PacketHandler, opts ...Option) *Link {
	l := &Link{
		Transport:       t,
		Handler:         h,
		ParseTimeout:    DefaultParseTimeout,
		LivenessTimeout: DefaultLivenessTimeout,
		OverflowDiscard: DefaultOverflowDiscard,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.parser.rx = &l.rx
	l.lastRx = l.now()
	return l
}

// Poll drains the transport, dispatches every complete packet and applies
// the stale data and liveness checks. It never blocks. Only transport
// errors are returned; link faults are counted in Status.
func (l *Link) Poll(ctx context.Context) error {
	err := l.drain()

	for {
		pkt, perr := l.parser.Next()
		if perr != nil {
			l.countFrameError(perr)
			continue
		}
		if pkt == nil {
			break
		}
		l.status.RxPackets++
		l.status.LastPacket = l.now()
		l.status.Connected = true
		glog.V(2).Infof("RX: %s", pkt)
		for _, o := range l.observers {
			o.PacketReceived(pkt)
		}
		if h := l.Handler; h != nil {
			h.HandlePacket(ctx, pkt)
		}
	}
	l.status.SkippedBytes = l.parser.Skipped

	if l.rx.Len() > 0 && l.now().Sub(l.lastRx) > l.ParseTimeout {
		glog.Warningf("parse timeout, discarding %d bytes", l.rx.Len())
		l.rx.Clear()
		l.status.TimeoutErrors++
		l.status.Errors++
	}
	l.status.Connected = l.IsConnected()
	return err
}

func (l *Link) drain() error {
	for {
		n := l.Transport.Buffered()
		if n <= 0 {
			return nil
		}
		if n > len(l.readBuf) {
			n = len(l.readBuf)
		}
		n, err := l.Transport.Read(l.readBuf[:n])
		if n > 0 {
			l.lastRx = l.now()
			l.status.RxBytes += uint32(n)
			for _, b := range l.readBuf[:n] {
				l.push(b)
			}
		}
		if err != nil {
			return fmt.Errorf("transport read: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

func (l *Link) push(b byte) {
	if l.rx.Push(b) {
		return
	}
	l.status.OverflowErrors++
	l.status.Errors++
	glog.Warningf("%v, discarding %d old bytes", ErrBufferOverflow, l.OverflowDiscard)
	l.rx.Discard(l.OverflowDiscard)
	l.rx.Push(b)
}

func (l *Link) countFrameError(err error) {
	l.status.Errors++
	if fe, ok := err.(*FrameError); ok {
		switch fe.Err {
		case ErrChecksumMismatch:
			l.status.ChecksumErrors++
		case ErrLengthOutOfRange:
			l.status.LengthErrors++
		case ErrBadEndByte:
			l.status.FramingErrors++
		}
	}
	glog.Warningf("RX: %v", err)
}

// Send sends a command using the next outgoing sequence number, which is
// returned for pairing with the response.
func (l *Link) Send(cmd byte, payload []byte) (byte, error) {
	if len(payload) > MaxPayload {
		return 0, ErrInvalidParameter
	}
	seq := l.txSeq
	l.txSeq++
	return seq, l.SendPacket(Packet{Command: cmd, Sequence: seq, Payload: payload})
}

// SendAck acknowledges the peer's sequence with a status code.
func (l *Link) SendAck(seq, status byte) error {
	return l.SendPacket(Packet{Command: AckCommand, Sequence: seq, Payload: []byte{status}})
}

// SendPacket sends a packet as-is, keeping its sequence number.
// The frame is written with a single Write call.
func (l *Link) SendPacket(pkt Packet) error {
	frame, err := pkt.Bytes()
	if err != nil {
		return err
	}
	n, err := l.Transport.Write(frame)
	if err != nil {
		l.status.Errors++
		return fmt.Errorf("transport write: %w", err)
	}
	l.status.TxPackets++
	l.status.TxBytes += uint32(n)
	glog.V(2).Infof("TX: %s", pkt)
	for _, o := range l.observers {
		o.PacketSent(&pkt)
	}
	return nil
}

// IsConnected reports whether a valid packet was received within the
// liveness timeout.
func (l *Link) IsConnected() bool {
	last := l.status.LastPacket
	return !last.IsZero() && l.now().Sub(last) < l.LivenessTimeout
}

// Status returns a snapshot of the bookkeeping.
func (l *Link) Status() Status {
	s := l.status
	s.Connected = l.IsConnected()
	return s
}

// NextSequence returns the sequence number the next Send will use.
func (l *Link) NextSequence() byte {
	return l.txSeq
}

// BufferUsage returns the number of unparsed bytes.
func (l *Link) BufferUsage() int {
	return l.rx.Len()
}

// BufferStats returns the receive ring counters.
func (l *Link) BufferStats() RingStats {
	return l.rx.Stats()
}

// ClearBuffer drops all unparsed bytes.
func (l *Link) ClearBuffer() {
	l.rx.Clear()
}
