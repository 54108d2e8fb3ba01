package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"scribe/internal/logging"
	"scribe/internal/pipeline"
)

// Dispatcher runs every submitted task on its own goroutine.
type Dispatcher struct {
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{logger: logger}
}

type taskHandle struct {
	done chan struct{}
	err  error
}

func (h *taskHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit starts task and returns a handle that resolves with its result. A
// panicking task resolves with an error.
func (d *Dispatcher) Submit(ctx context.Context, name string, task pipeline.Task) pipeline.Handle {
	handle := &taskHandle{done: make(chan struct{})}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(handle.done)
		defer func() {
			if r := recover(); r != nil {
				handle.err = fmt.Errorf("task %s panicked: %v", name, r)
				logging.WithContext(ctx, d.logger).Error("task panicked",
					logging.Event("task_panic"),
					logging.String("task", name),
					logging.Any("panic", r),
					logging.String("stack", string(debug.Stack())),
				)
			}
		}()
		logging.WithContext(ctx, d.logger).Debug("task dispatched", logging.String("task", name))
		handle.err = task(ctx)
	}()
	return handle
}

// Wait blocks until every submitted task has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
