package controller

import "context"

// Task is a generation running on its own goroutine.
type Task struct {
	done   chan struct{}
	cancel context.CancelFunc
	res    Result
	err    error
}

// Start runs Generate on a new goroutine. The caller must Wait or Cancel.
func (s *Session) Start(ctx context.Context, req Request, sink Sink) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(t.done)
		defer cancel()
		t.res, t.err = s.Generate(ctx, req, sink)
	}()
	return t
}

// Wait blocks until the task ends.
func (t *Task) Wait() (Result, error) {
	<-t.done
	return t.res, t.err
}

// Cancel stops the task at its next token boundary; it does not wait.
func (t *Task) Cancel() { t.cancel() }

// Done is closed when the task ends.
func (t *Task) Done() <-chan struct{} { return t.done }
