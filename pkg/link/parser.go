package link

var syncPattern = []byte{StartByte}

// Parser extracts frames from a RingBuffer.
// It keeps no state between calls other than the buffer contents:
// incomplete frames are left in place and re-examined on the next call.
type Parser struct {
	rx *RingBuffer

	header  [HeaderSize]byte
	payload [MaxPayload]byte
	footer  [FooterSize]byte

	// Skipped counts bytes dropped while searching for a start byte.
	Skipped uint32
}

// NewParser creates a Parser reading from rx.
func NewParser(rx *RingBuffer) *Parser {
	return &Parser{rx: rx}
}

// Next extracts the next packet.
// It returns (nil, nil) when more data is needed. When a candidate frame is
// rejected, exactly one byte (its start byte) is dropped and the reason is
// returned; the caller may call Next again.
func (p *Parser) Next() (*Packet, error) {
	if !p.sync() {
		return nil, nil
	}
	if p.rx.PeekInto(0, p.header[:]) < HeaderSize {
		return nil, nil
	}
	length := HeaderLength(p.header[:])
	if length > MaxPayload {
		p.rx.Discard(1)
		return nil, &FrameError{Err: ErrLengthOutOfRange, Expected: MaxPayload, Actual: length}
	}
	frameSize := HeaderSize + length + FooterSize
	if p.rx.Len() < frameSize {
		return nil, nil
	}
	p.rx.PeekInto(HeaderSize, p.payload[:length])
	p.rx.PeekInto(HeaderSize+length, p.footer[:])
	pkt, err := Decode(p.header[:], p.payload[:length], p.footer[:])
	if err != nil {
		p.rx.Discard(1)
		return nil, err
	}
	p.rx.Discard(frameSize)
	return &pkt, nil
}

// sync drops leading bytes until a start byte is at the front, as long as at
// least a minimum frame is buffered. It reports whether a start byte is at
// the front.
func (p *Parser) sync() bool {
	if b, ok := p.rx.Peek(); ok && b == StartByte {
		return true
	}
	avail := p.rx.Len()
	if avail < MinFrameSize {
		return false
	}
	off := p.rx.FindPattern(syncPattern)
	if off < 0 {
		off = avail
	}
	// never shrink below a minimum frame while searching.
	if limit := avail - MinFrameSize + 1; off > limit {
		off = limit
	}
	p.Skipped += uint32(p.rx.Discard(off))
	b, ok := p.rx.Peek()
	return ok && b == StartByte
}
