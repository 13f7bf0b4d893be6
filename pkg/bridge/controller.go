// Package bridge connects the charger controller link to MQTT.
package bridge

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/evlink/pkg/framework"
	"github.com/robotalks/evlink/pkg/link"
)

// Poller is polled once per loop iteration. Both *link.Link and
// *link.Client are Pollers.
type Poller interface {
	Poll(context.Context) error
}

type linkTask func(*link.Link)

// LinkController owns a Link on the loop goroutine: it polls the link every
// iteration and runs work queued by other goroutines with Exec.
type LinkController struct {
	Poller Poller
	// OnStateChange is called on the loop goroutine when the link
	// becomes connected or disconnected.
	OnStateChange func(connected bool)

	link      *link.Link
	loop      framework.LoopControl
	connected bool
	lastErr   string
}

// NewLinkController creates a LinkController polling l.
func NewLinkController(l *link.Link) *LinkController {
	return &LinkController{Poller: l, link: l}
}

// Link returns the controlled link. It must only be used on the loop
// goroutine.
func (c *LinkController) Link() *link.Link {
	return c.link
}

// AddToLoop implements framework.LoopAdder.
func (c *LinkController) AddToLoop(l *framework.Loop) {
	c.loop = l
	l.AddController(framework.PrLvTransport, c)
}

// Exec runs fn with the link on the loop goroutine. It is safe to call
// from any goroutine once the controller is added to a loop.
func (c *LinkController) Exec(fn func(*link.Link)) {
	c.loop.PostMessage(linkTask(fn))
	c.loop.TriggerNext()
}

// Wake schedules an immediate poll, e.g. when the transport receives bytes.
func (c *LinkController) Wake() {
	if c.loop != nil {
		c.loop.TriggerNext()
	}
}

// Control implements framework.Controller.
func (c *LinkController) Control(cc framework.ControlContext) error {
	cc.ProcessMessages(func(msg framework.Message) bool {
		task, ok := msg.(linkTask)
		if ok {
			task(c.link)
		}
		return ok
	})

	if err := c.Poller.Poll(cc.Context()); err != nil {
		// a broken transport fails every poll, log it once.
		if msg := err.Error(); msg != c.lastErr {
			glog.Errorf("link poll: %v", err)
			c.lastErr = msg
		}
	} else {
		c.lastErr = ""
	}

	if connected := c.link.IsConnected(); connected != c.connected {
		c.connected = connected
		if connected {
			glog.Info("link connected")
		} else {
			glog.Warning("link disconnected")
		}
		if fn := c.OnStateChange; fn != nil {
			fn(connected)
		}
	}
	return nil
}
