package link

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// DefaultExpiration is how long a command waits for its response.
const DefaultExpiration = time.Second

// ackSuccess is the status byte of a successful ACK.
const ackSuccess byte = 0x00

// Result is the result of a command using Do.
type Result struct {
	Err     error
	Command byte
	Status  byte
	Payload []byte
}

// Client pairs commands sent over a Link with their responses.
// Like the Link, it must be used from a single goroutine.
type Client struct {
	Expiration time.Duration

	link     *Link
	handler  PacketHandler
	cmdsHead *Command
	cmdsTail *Command
}

// Command represents a pending command waiting for reply.
type Command struct {
	requestCmd byte
	requestSeq byte
	sentAt     time.Time
	resultCh   chan Result
	next       *Command
}

// RequestSeq returns the request packet sequence.
func (c *Command) RequestSeq() byte {
	return c.requestSeq
}

// ResultChan returns the chan to retrieve result.
func (c *Command) ResultChan() <-chan Result {
	return c.resultCh
}

func (c *Command) deliver(r Result) {
	select {
	case c.resultCh <- r:
	default:
		glog.Warningf("result of command seq %d dropped, chan full", c.requestSeq)
	}
}

func (c *Command) matches(pkt *Packet) bool {
	if pkt.Sequence != c.requestSeq {
		return false
	}
	return pkt.Command == AckCommand || pkt.Command == c.requestCmd|0x80
}

// NewClient wraps the link. Packets not paired with a pending command are
// passed to the link's original handler.
func NewClient(l *Link) *Client {
	c := &Client{
		Expiration: DefaultExpiration,
		link:       l,
		handler:    l.Handler,
	}
	l.Handler = c
	return c
}

// Link gets the wrapped Link.
func (c *Client) Link() *Link {
	return c.link
}

// DoWith sends a command and expects a result in the provided chan.
// The result is sent without blocking from the goroutine polling the link,
// so ch must have room for it; otherwise the result is dropped.
func (c *Client) DoWith(cmd byte, payload []byte, ch chan Result) *Command {
	command := &Command{requestCmd: cmd, resultCh: ch}
	seq, err := c.link.Send(cmd, payload)
	command.requestSeq = seq
	if err != nil {
		command.deliver(Result{Err: err})
		return command
	}
	command.sentAt = c.link.now()
	if c.cmdsHead == nil {
		c.cmdsHead = command
	} else {
		c.cmdsTail.next = command
	}
	c.cmdsTail = command
	return command
}

// Do sends a command and returns a Command for result.
func (c *Client) Do(cmd byte, payload []byte) *Command {
	return c.DoWith(cmd, payload, make(chan Result, 1))
}

// Pending returns the number of commands waiting for reply.
func (c *Client) Pending() int {
	n := 0
	for curr := c.cmdsHead; curr != nil; curr = curr.next {
		n++
	}
	return n
}

// HandlePacket implements PacketHandler.
func (c *Client) HandlePacket(ctx context.Context, pkt *Packet) {
	if !pkt.IsResponse() || !c.resolve(pkt) {
		if c.handler != nil {
			c.handler.HandlePacket(ctx, pkt)
		}
	}
}

func (c *Client) resolve(pkt *Packet) bool {
	var prev *Command
	curr := c.cmdsHead
	for ; curr != nil; prev, curr = curr, curr.next {
		if curr.matches(pkt) {
			break
		}
	}
	if curr == nil {
		return false
	}
	c.unlink(prev, curr)

	result := Result{Command: pkt.Command, Payload: pkt.Payload}
	if pkt.Command == AckCommand && len(pkt.Payload) > 0 {
		result.Status = pkt.Payload[0]
		result.Payload = pkt.Payload[1:]
		if result.Status != ackSuccess {
			result.Err = &StatusError{Status: result.Status}
		}
	}
	curr.deliver(result)
	return true
}

func (c *Client) unlink(prev, curr *Command) {
	if prev == nil {
		c.cmdsHead = curr.next
	} else {
		prev.next = curr.next
	}
	if c.cmdsTail == curr {
		c.cmdsTail = prev
	}
	curr.next = nil
}

// Poll polls the link and expires commands waiting longer than Expiration.
func (c *Client) Poll(ctx context.Context) error {
	err := c.link.Poll(ctx)
	c.expire()
	return err
}

func (c *Client) expire() {
	now := c.link.now()
	for c.cmdsHead != nil && now.Sub(c.cmdsHead.sentAt) >= c.Expiration {
		cmd := c.cmdsHead
		c.unlink(nil, cmd)
		cmd.deliver(Result{Err: ErrNoReply})
	}
}
