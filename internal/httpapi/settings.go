package httpapi

import (
	"context"
	"time"
)

// DefaultMaxBodyBytes caps JSON request bodies when Options leaves it unset.
const DefaultMaxBodyBytes int64 = 1 << 20

// CORSOptions enables the cors middleware when Enabled is set.
type CORSOptions struct {
	Enabled bool
	Origins []string
	Methods []string
	Headers []string
}

// Options tunes muxes built after Configure.
type Options struct {
	MaxBodyBytes int64
	// InferTimeout bounds one /infer request; zero leaves it to the server.
	InferTimeout time.Duration
	CORS         CORSOptions
	// BaseContext is cancelled on shutdown and ends every in-flight request.
	BaseContext  context.Context
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if o.InferTimeout < 0 {
		o.InferTimeout = 0
	}
	if o.BaseContext == nil {
		o.BaseContext = context.Background()
	}
	o.CORS.Origins = append([]string(nil), o.CORS.Origins...)
	o.CORS.Methods = append([]string(nil), o.CORS.Methods...)
	o.CORS.Headers = append([]string(nil), o.CORS.Headers...)
	return o
}

var opts = Options{}.withDefaults()

// Configure replaces the package options. Call it before NewMux and before
// serving; handlers read the options without locking.
func Configure(o Options) { opts = o.withDefaults() }

// joinContexts derives a context from req that also ends when base does.
// The returned cancel func must run when the handler returns.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
