package controller

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Sink receives the events of one generation, in order, on the generating
// goroutine. A sink that blocks stalls generation.
//
// Exactly one of OnCompleted or OnError is called per request once the
// lease is held.
type Sink interface {
	OnFragment(text string)
	OnCompleted(res Result)
	OnError(err error)
}

// SinkFuncs adapts plain functions to Sink. Nil fields are skipped.
type SinkFuncs struct {
	Fragment  func(string)
	Completed func(Result)
	Error     func(error)
}

func (f SinkFuncs) OnFragment(text string) {
	if f.Fragment != nil {
		f.Fragment(text)
	}
}

func (f SinkFuncs) OnCompleted(res Result) {
	if f.Completed != nil {
		f.Completed(res)
	}
}

func (f SinkFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// guardedSink recovers and logs panics from the wrapped sink.
type guardedSink struct {
	inner  Sink
	log    zerolog.Logger
	panics int
}

func guard(s Sink, log zerolog.Logger) *guardedSink {
	if s == nil {
		s = SinkFuncs{}
	}
	return &guardedSink{inner: s, log: log}
}

func (g *guardedSink) call(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			g.panics++
			g.log.Error().Str("event", "sink_panic").Str("callback", event).
				Str("panic", fmt.Sprint(r)).Msg("sink callback panicked")
		}
	}()
	fn()
}

func (g *guardedSink) fragment(text string) {
	g.call("fragment", func() { g.inner.OnFragment(text) })
}

func (g *guardedSink) completed(res Result) {
	g.call("completed", func() { g.inner.OnCompleted(res) })
}

func (g *guardedSink) failed(err error) {
	g.call("error", func() { g.inner.OnError(err) })
}
