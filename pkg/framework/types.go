package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Message is anything posted to the loop from another goroutine and
// consumed by controllers on the loop goroutine.
type Message interface{}

// Controller is the logic run on every loop iteration.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// ControlContext provides the context of current iteration.
type ControlContext interface {
	// Context retrieves context.Context.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// PriorityLevel gets the current priority level.
	PriorityLevel() int
	// ProcessMessages passes every pending message to fn. Messages for
	// which fn returns true are consumed; others stay for later controllers
	// and iterations.
	ProcessMessages(fn func(Message) bool)

	LoopControl
}

// LoopControl exposes access to the loop and is safe to use from any
// goroutine.
type LoopControl interface {
	// PostMessage enqueues the message for the next iteration.
	PostMessage(Message)
	// RunOnce runs a one-shot controller after the regular controllers of
	// the priority level in the next iteration.
	RunOnce(priorityLevel int, ctl Controller)
	// TriggerNext runs the next iteration immediately.
	TriggerNext()
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 8

// Predefined priority levels, run in ascending order.
const (
	PrLvTransport int = 0
	PrLvHigh      int = 2
	PrLvNormal    int = 4
	PrLvLow       int = 6
	PrLvIdle      int = PriorityLevels - 1
)
