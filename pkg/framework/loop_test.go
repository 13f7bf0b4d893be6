package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopPriorityOrder(t *testing.T) {
	var order []int
	record := func(n int) Controller {
		return ControlFunc(func(cc ControlContext) error {
			order = append(order, n*100+cc.PriorityLevel())
			return nil
		})
	}
	l := NewLoop().
		AddController(PrLvLow, record(3)).
		AddController(PrLvTransport, record(1)).
		AddController(PrLvNormal, record(2), ControlFunc(func(ControlContext) error {
			return errors.New("ignored")
		}))
	l.RunOnce(PrLvTransport, record(9))

	l.RunIteration(context.Background())
	require.Equal(t, []int{100, 900, 204, 306}, order)

	order = nil
	l.RunIteration(context.Background())
	require.Equal(t, []int{100, 204, 306}, order)
}

func TestLoopMessages(t *testing.T) {
	var taken, seen []Message
	l := NewLoop().
		AddController(PrLvHigh, ControlFunc(func(cc ControlContext) error {
			cc.ProcessMessages(func(msg Message) bool {
				if n, ok := msg.(int); ok {
					taken = append(taken, n)
					return true
				}
				return false
			})
			return nil
		})).
		AddController(PrLvLow, ControlFunc(func(cc ControlContext) error {
			cc.ProcessMessages(func(msg Message) bool {
				seen = append(seen, msg)
				return false
			})
			return nil
		}))

	l.PostMessage(1)
	l.PostMessage("keep")
	l.PostMessage(2)
	l.RunIteration(context.Background())
	require.Equal(t, []Message{1, 2}, taken)
	require.Equal(t, []Message{"keep"}, seen)

	l.PostMessage(3)
	seen = nil
	l.RunIteration(context.Background())
	require.Equal(t, []Message{1, 2, 3}, taken)
	require.Equal(t, []Message{"keep"}, seen)
}

type countingRunnable struct {
	started chan LoopControl
}

func (r *countingRunnable) Run(ctx context.Context) error {
	r.started <- LoopCtlFrom(ctx)
	<-ctx.Done()
	return ctx.Err()
}

func TestLoopRun(t *testing.T) {
	iterations := make(chan struct{}, 16)
	runnable := &countingRunnable{started: make(chan LoopControl, 1)}
	l := NewLoop().AddController(PrLvNormal, ControlFunc(func(ControlContext) error {
		select {
		case iterations <- struct{}{}:
		default:
		}
		return nil
	})).AddRunnable(runnable)
	l.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	select {
	case ctl := <-runnable.started:
		require.Equal(t, LoopControl(l), ctl)
	case <-time.After(time.Second):
		t.Fatal("runnable not started")
	}

	l.TriggerNext()
	select {
	case <-iterations:
	case <-time.After(time.Second):
		t.Fatal("triggered iteration not run")
	}

	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("loop not stopped")
	}
}
