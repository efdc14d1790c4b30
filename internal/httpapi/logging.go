package httpapi

import (
	"bytes"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// zlog is the HTTP layer's logger; SetLogger replaces it.
var zlog = zerolog.New(os.Stderr).With().Timestamp().Str("component", "http").Logger()

// SetLogger installs the logger handlers derive request loggers from.
func SetLogger(l zerolog.Logger) { zlog = l.With().Str("component", "http").Logger() }

// parseLevel maps the per-request switch onto a zerolog level. "off" and ""
// disable request logs; unknown values fall back to info.
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return zerolog.Disabled
	case "error":
		return zerolog.ErrorLevel
	case "info":
		return zerolog.InfoLevel
	case "debug", "1":
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// defaultLogLevel applies when a request names no level. It starts from
// STREAMD_HTTP_LOG.
var defaultLogLevel = parseLevel(os.Getenv("STREAMD_HTTP_LOG"))

// SetDefaultLogLevel overrides the per-request default.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

// requestLogLevel reads ?log= first, then X-Log-Level, then the default.
func requestLogLevel(r *http.Request) zerolog.Level {
	if v := r.URL.Query().Get("log"); v != "" {
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// requestLogger is zlog filtered to the request's level, tagged with the
// request id and path.
func requestLogger(r *http.Request) zerolog.Logger {
	c := zlog.Level(requestLogLevel(r)).With().Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		c = c.Str("request_id", rid)
	}
	return c.Logger()
}

// streamTap logs each complete NDJSON line of an /infer response at debug.
// Token lines log the fragment, the done line logs its outcome.
type streamTap struct {
	log zerolog.Logger
	buf []byte
}

type tapLine struct {
	Token        *string `json:"token"`
	Done         bool    `json:"done"`
	FinishReason string  `json:"finish_reason"`
	Error        string  `json:"error"`
	Position     int     `json:"position"`
}

func (t *streamTap) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	for {
		idx := bytes.IndexByte(t.buf, '\n')
		if idx < 0 {
			return len(p), nil
		}
		if line := t.buf[:idx]; len(line) > 0 {
			t.logLine(line)
		}
		t.buf = t.buf[idx+1:]
	}
}

func (t *streamTap) logLine(line []byte) {
	var tl tapLine
	ev := t.log.Debug()
	switch {
	case json.Unmarshal(line, &tl) != nil:
		ev = ev.Bytes("line", line)
	case tl.Done:
		ev = ev.Bool("done", true).Str("finish_reason", tl.FinishReason).Int("position", tl.Position)
		if tl.Error != "" {
			ev = ev.Str("error", tl.Error)
		}
	case tl.Token != nil:
		ev = ev.Str("token", *tl.Token)
	}
	ev.Msg("infer>")
}
