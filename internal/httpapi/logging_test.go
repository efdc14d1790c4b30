package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zerolog.Level{
		"":      zerolog.Disabled,
		"off":   zerolog.Disabled,
		"ERROR": zerolog.ErrorLevel,
		"info":  zerolog.InfoLevel,
		"debug": zerolog.DebugLevel,
		"1":     zerolog.DebugLevel,
		"loud":  zerolog.InfoLevel,
	} {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevelPrecedence(t *testing.T) {
	old := defaultLogLevel
	defer func() { defaultLogLevel = old }()
	SetDefaultLogLevel("error")

	r := httptest.NewRequest(http.MethodPost, "/infer", nil)
	if got := requestLogLevel(r); got != zerolog.ErrorLevel {
		t.Fatalf("default: %v", got)
	}
	r.Header.Set("X-Log-Level", "info")
	if got := requestLogLevel(r); got != zerolog.InfoLevel {
		t.Fatalf("header: %v", got)
	}
	r = httptest.NewRequest(http.MethodPost, "/infer?log=1", nil)
	r.Header.Set("X-Log-Level", "info")
	if got := requestLogLevel(r); got != zerolog.DebugLevel {
		t.Fatalf("query wins: %v", got)
	}
}

func TestStreamTapSplitsLines(t *testing.T) {
	var buf bytes.Buffer
	tap := &streamTap{log: zerolog.New(&buf).Level(zerolog.DebugLevel)}
	_, _ = tap.Write([]byte(`{"token":"a"}` + "\n" + `{"tok`))
	if n := strings.Count(buf.String(), "infer>"); n != 1 {
		t.Fatalf("want 1 line logged, got %d: %s", n, buf.String())
	}
	_, _ = tap.Write([]byte(`en":"b"}` + "\n" + `{"done":true,"finish_reason":"terminal","position":9}` + "\n"))
	out := buf.String()
	if n := strings.Count(out, "infer>"); n != 3 {
		t.Fatalf("want 3 lines logged, got %d: %s", n, out)
	}
	if !strings.Contains(out, `"token":"b"`) {
		t.Fatalf("reassembled token missing: %s", out)
	}
	if !strings.Contains(out, `"finish_reason":"terminal"`) || !strings.Contains(out, `"position":9`) {
		t.Fatalf("done fields missing: %s", out)
	}
}

func TestStreamTapKeepsUndecodableLines(t *testing.T) {
	var buf bytes.Buffer
	tap := &streamTap{log: zerolog.New(&buf).Level(zerolog.DebugLevel)}
	_, _ = tap.Write([]byte("not json\n"))
	if !strings.Contains(buf.String(), "not json") {
		t.Fatalf("raw line not logged: %s", buf.String())
	}
}

func TestInferDebugTapLogsStream(t *testing.T) {
	var buf bytes.Buffer
	old := zlog
	SetLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	defer func() { zlog = old }()

	rr := postJSON(t, NewMux(&mockService{}), "/infer?log=debug", `{"prompt":"x"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	out := buf.String()
	if strings.Count(out, "infer>") != 3 {
		t.Fatalf("expected 3 tapped lines: %s", out)
	}
	if !strings.Contains(out, "infer start") || !strings.Contains(out, "infer end") {
		t.Fatalf("start/end logs missing: %s", out)
	}
	if !strings.Contains(out, `"component":"http"`) {
		t.Fatalf("component field missing: %s", out)
	}
}

func TestInferLogOffIsSilent(t *testing.T) {
	var buf bytes.Buffer
	old := zlog
	SetLogger(zerolog.New(&buf))
	defer func() { zlog = old }()
	oldLvl := defaultLogLevel
	SetDefaultLogLevel("off")
	defer func() { defaultLogLevel = oldLvl }()

	postJSON(t, NewMux(&mockService{}), "/infer", `{"prompt":"x"}`)
	if buf.Len() != 0 {
		t.Fatalf("expected no logs, got %s", buf.String())
	}
}
