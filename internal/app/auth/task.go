package auth

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc"
)

// Task is one background refresh run.
type Task struct {
	done   chan struct{}
	cancel context.CancelFunc
}

// Done is closed after the run's last store write and its callback.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) Wait() { <-t.done }

// Cancel stops the run before its next store write. Safe to call twice.
func (t *Task) Cancel() { t.cancel() }

type taskSet struct {
	wg     conc.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func (s *taskSet) init() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
}

// Start runs Refresh on its own goroutine and returns immediately.
// onDone, if set, is invoked exactly once when the run is over.
func (m *Machine) Start(ctx context.Context, onDone func()) *Task {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.tasks.ctx, cancel)
	t := &Task{done: make(chan struct{}), cancel: cancel}

	m.tasks.wg.Go(func() {
		defer close(t.done)
		defer stop()
		defer cancel()

		m.Refresh(ctx)
		if onDone != nil {
			onDone()
		}
	})
	return t
}

// Close cancels every running task and waits for them to return.
func (m *Machine) Close() {
	m.tasks.once.Do(m.tasks.cancel)
	m.tasks.wg.Wait()
}
