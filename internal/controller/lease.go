package controller

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	errQueueFull   = errors.New("queue wait exceeded")
	errSessionUsed = errors.New("session in use")
)

// Lease is exclusive use of a session's engine. Release is idempotent and
// must be called on every path; defer it right after Acquire.
type Lease struct {
	s        *Session
	once     sync.Once
	queued   bool
	Acquired time.Time
}

// Acquire takes the session lease. Under AdmitBlock the caller holds a queue
// slot while waiting and gives up after MaxWait with SessionBusy; under
// AdmitReject a busy session fails at once. A new lease clears the stop flag.
func (s *Session) Acquire(ctx context.Context) (*Lease, error) {
	if s.closed.Load() {
		return nil, newError(SessionBusy, "acquire", errClosed)
	}
	l := &Lease{s: s}
	if s.cfg.Admission == AdmitReject {
		if !s.gen.TryAcquire(1) {
			return nil, newError(SessionBusy, "acquire", errSessionUsed)
		}
		return s.granted(l)
	}

	wctx, cancel := context.WithTimeout(ctx, s.cfg.MaxWait)
	defer cancel()
	s.waiting.Add(1)
	defer s.waiting.Add(-1)

	if err := s.queue.Acquire(wctx, 1); err != nil {
		return nil, s.admissionError(ctx)
	}
	l.queued = true
	if err := s.gen.Acquire(wctx, 1); err != nil {
		s.queue.Release(1)
		return nil, s.admissionError(ctx)
	}
	return s.granted(l)
}

func (s *Session) granted(l *Lease) (*Lease, error) {
	if s.closed.Load() {
		l.Release()
		return nil, newError(SessionBusy, "acquire", errClosed)
	}
	l.Acquired = time.Now()
	s.busy.Store(true)
	s.stopFlag.Store(false)
	return l, nil
}

func (s *Session) admissionError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return newError(Cancelled, "acquire", err)
	}
	return newError(SessionBusy, "acquire", errQueueFull)
}

// Release returns the lease.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.s.busy.Store(false)
		l.s.gen.Release(1)
		if l.queued {
			l.s.queue.Release(1)
		}
	})
}
