package main

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"streamd/internal/controller"
	"streamd/internal/engine/enginetest"
	"streamd/internal/store"
)

func newTestChat(t *testing.T, eng *enginetest.Scripted, withStore bool) *chatModel {
	t.Helper()
	sess := controller.NewSession(eng, controller.SessionConfig{})
	t.Cleanup(func() { _ = sess.Close(context.Background()) })
	var st store.Store
	if withStore {
		fs, err := store.NewFileStore(t.TempDir())
		if err != nil {
			t.Fatalf("store: %v", err)
		}
		st = fs
	}
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("notty"), glamour.WithWordWrap(80))
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	return newChatModel(context.Background(), sess, st, chatOptions{}, r)
}

// pump runs cmd and feeds its messages back into the model until the chain
// ends.
func pump(t *testing.T, m *chatModel, cmd tea.Cmd) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for cmd != nil {
		if time.Now().After(deadline) {
			t.Fatalf("event chain did not finish")
		}
		msg := cmd()
		if msg == nil {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func send(t *testing.T, m *chatModel, text string) tea.Cmd {
	t.Helper()
	m.textarea.SetValue(text)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func lastNote(m *chatModel) string {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].role == roleNote {
			return m.messages[i].content
		}
	}
	return ""
}

func TestChatStreamsReply(t *testing.T) {
	eng := enginetest.New("Hel", "lo", "!")
	m := newTestChat(t, eng, false)
	pump(t, m, send(t, m, "hi"))

	if m.streaming {
		t.Fatalf("still streaming")
	}
	if len(m.messages) != 2 || m.messages[0].content != "hi" || m.messages[1].content != "Hello!" {
		t.Fatalf("messages: %+v", m.messages)
	}
	if !strings.HasPrefix(m.messages[1].stats, string(controller.FinishTerminal)) {
		t.Fatalf("stats %q", m.messages[1].stats)
	}
	if m.builder.Turns() != 1 || m.sess.Position() == 0 {
		t.Fatalf("turns=%d position=%d", m.builder.Turns(), m.sess.Position())
	}
	if m.textarea.Value() != "" {
		t.Fatalf("input not cleared")
	}
}

func TestChatEnterIgnoredWhileStreaming(t *testing.T) {
	eng := enginetest.New("a", "b", "c")
	eng.EvalDelay = 10 * time.Millisecond
	m := newTestChat(t, eng, false)
	cmd := send(t, m, "one")
	if cmd2 := send(t, m, "two"); cmd2 != nil {
		t.Fatalf("second submit accepted while streaming")
	}
	pump(t, m, cmd)
	if len(m.messages) != 2 {
		t.Fatalf("messages: %+v", m.messages)
	}
}

func TestChatCtrlCStopsThenQuits(t *testing.T) {
	pieces := make([]string, 40)
	for i := range pieces {
		pieces[i] = "x"
	}
	eng := enginetest.New(pieces...)
	eng.EvalDelay = 5 * time.Millisecond
	m := newTestChat(t, eng, false)

	cmd := send(t, m, "go")
	// Wait for the first fragment so the stop lands inside the generation.
	_, cmd = m.Update(cmd())
	if _, quit := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); quit != nil {
		t.Fatalf("ctrl+c while streaming should not quit")
	}
	if !m.stopping {
		t.Fatalf("stopping flag not set")
	}
	pump(t, m, cmd)
	if !strings.HasPrefix(m.messages[1].stats, string(controller.FinishCancelled)) {
		t.Fatalf("stats %q", m.messages[1].stats)
	}

	_, quit := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if quit == nil {
		t.Fatalf("ctrl+c while idle should quit")
	}
	if _, ok := quit().(tea.QuitMsg); !ok {
		t.Fatalf("expected QuitMsg")
	}
}

func TestChatResetClearsMemory(t *testing.T) {
	eng := enginetest.New("ok")
	m := newTestChat(t, eng, false)
	pump(t, m, send(t, m, "hi"))
	pump(t, m, send(t, m, "/reset"))
	if eng.Clears() != 1 || m.sess.Position() != 0 {
		t.Fatalf("clears=%d position=%d", eng.Clears(), m.sess.Position())
	}
	if m.builder.Turns() != 0 || len(m.messages) != 1 || lastNote(m) != "conversation reset" {
		t.Fatalf("after reset: turns=%d messages=%+v", m.builder.Turns(), m.messages)
	}
}

func TestChatSaveAndLoad(t *testing.T) {
	eng := enginetest.New("ok")
	m := newTestChat(t, eng, true)
	pump(t, m, send(t, m, "hi"))
	pos := m.sess.Position()

	pump(t, m, send(t, m, "/save first"))
	if !strings.HasPrefix(lastNote(m), `saved "first"`) {
		t.Fatalf("save note %q", lastNote(m))
	}
	pump(t, m, send(t, m, "/reset"))
	pump(t, m, send(t, m, "/load first"))
	if !strings.HasPrefix(lastNote(m), `loaded "first"`) {
		t.Fatalf("load note %q", lastNote(m))
	}
	if m.sess.Position() != pos || m.builder.Turns() != 1 {
		t.Fatalf("position=%d want %d turns=%d", m.sess.Position(), pos, m.builder.Turns())
	}

	pump(t, m, send(t, m, "/load missing"))
	if !strings.HasPrefix(lastNote(m), "load failed") {
		t.Fatalf("missing key note %q", lastNote(m))
	}
	pump(t, m, send(t, m, "/save"))
	if lastNote(m) != "usage: /save <key>" {
		t.Fatalf("usage note %q", lastNote(m))
	}
}

func TestChatCommandsWithoutStore(t *testing.T) {
	m := newTestChat(t, enginetest.New(), false)
	pump(t, m, send(t, m, "/save k"))
	if lastNote(m) != "no session store configured" {
		t.Fatalf("note %q", lastNote(m))
	}
	pump(t, m, send(t, m, "/bogus"))
	if lastNote(m) != "unknown command /bogus" {
		t.Fatalf("note %q", lastNote(m))
	}
	if cmd := send(t, m, "/quit"); cmd == nil {
		t.Fatalf("/quit should return a quit command")
	}
}

func TestChatViewAfterResize(t *testing.T) {
	m := newTestChat(t, enginetest.New("fine"), false)
	if !strings.Contains(m.View(), "Loading") {
		t.Fatalf("view before size: %q", m.View())
	}
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	pump(t, m, send(t, m, "hello"))
	v := m.View()
	if !strings.Contains(v, "streamd chat") || !strings.Contains(v, "fine") {
		t.Fatalf("view: %q", v)
	}
}
