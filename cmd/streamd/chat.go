package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"streamd/internal/controller"
	"streamd/internal/prompt"
	"streamd/internal/sampling"
	"streamd/internal/store"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D9FF")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			PaddingLeft(1)

	botStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4")).
			PaddingLeft(1)

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D")).
			PaddingLeft(1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666680")).
			Italic(true).
			PaddingLeft(2)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3d3d5c"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4a4a6a")).
			PaddingLeft(1)
)

const chatHelp = "enter send · ctrl+c stop/quit · /reset · /save <key> · /load <key> · /quit"

type chatRole int

const (
	roleUser chatRole = iota
	roleBot
	roleNote
)

type chatMessage struct {
	role    chatRole
	content string
	stats   string
}

type fragmentMsg string

type replyDoneMsg struct {
	res controller.Result
	err error
}

type chatOptions struct {
	system string
	params sampling.Params
	stop   []string
}

type chatModel struct {
	ctx      context.Context
	sess     *controller.Session
	store    store.Store
	opts     chatOptions
	builder  prompt.Builder
	viewport viewport.Model
	textarea textarea.Model
	renderer *glamour.TermRenderer
	messages []chatMessage
	events   chan tea.Msg
	// streaming is true from submit until the reply's done message.
	streaming bool
	stopping  bool
	ready     bool
}

func newChatModel(ctx context.Context, sess *controller.Session, st store.Store, opts chatOptions, renderer *glamour.TermRenderer) *chatModel {
	ta := textarea.New()
	ta.Placeholder = "Say something..."
	ta.Prompt = "┃ "
	ta.CharLimit = 8000
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline.SetKeys("alt+enter")
	ta.Focus()
	return &chatModel{
		ctx:      ctx,
		sess:     sess,
		store:    st,
		opts:     opts,
		builder:  prompt.Builder{System: opts.system},
		viewport: viewport.New(80, 20),
		textarea: ta,
		renderer: renderer,
	}
}

func (m *chatModel) Init() tea.Cmd { return textarea.Blink }

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.streaming {
				m.sess.Stop()
				m.stopping = true
				return m, nil
			}
			return m, tea.Quit
		case tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.textarea.Value())
			if text == "" || m.streaming {
				return m, nil
			}
			m.textarea.Reset()
			return m, m.submit(text)
		}

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width - 2
		m.viewport.Height = msg.Height - m.textarea.Height() - 5
		m.textarea.SetWidth(msg.Width - 2)
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(msg.Width-6)); err == nil {
			m.renderer = r
		}
		m.ready = true
		m.refresh()

	case fragmentMsg:
		if n := len(m.messages); n > 0 {
			m.messages[n-1].content += string(msg)
		}
		m.refresh()
		return m, waitForEvent(m.events)

	case replyDoneMsg:
		m.finishReply(msg)
		m.refresh()
		return m, nil
	}

	var taCmd, vpCmd tea.Cmd
	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(taCmd, vpCmd)
}

// submit runs a slash command or starts a reply.
func (m *chatModel) submit(text string) tea.Cmd {
	if strings.HasPrefix(text, "/") {
		cmd := m.command(text)
		m.refresh()
		return cmd
	}
	m.messages = append(m.messages,
		chatMessage{role: roleUser, content: text},
		chatMessage{role: roleBot})
	m.streaming = true
	m.stopping = false
	cmd := m.start(m.builder.Next(text))
	m.refresh()
	return cmd
}

// start spawns the generation. Sink callbacks and the final result are
// funneled through one channel so the UI sees them in order.
func (m *chatModel) start(text string) tea.Cmd {
	events := make(chan tea.Msg, 64)
	m.events = events
	var finished atomic.Bool
	sink := controller.SinkFuncs{
		Fragment: func(s string) { events <- fragmentMsg(s) },
		Completed: func(res controller.Result) {
			finished.Store(true)
			events <- replyDoneMsg{res: res}
		},
		Error: func(err error) {
			finished.Store(true)
			events <- replyDoneMsg{err: err}
		},
	}
	task := m.sess.Start(m.ctx, controller.Request{Prompt: text, Params: m.opts.params, Stop: m.opts.stop}, sink)
	go func() {
		res, err := task.Wait()
		if !finished.Load() {
			events <- replyDoneMsg{res: res, err: err}
		}
		close(events)
	}()
	return waitForEvent(events)
}

func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *chatModel) finishReply(msg replyDoneMsg) {
	m.streaming = false
	m.stopping = false
	n := len(m.messages)
	if n == 0 {
		return
	}
	last := &m.messages[n-1]
	if msg.err != nil {
		if last.content == "" {
			m.messages = m.messages[:n-1]
		}
		m.note("error: %v", msg.err)
		return
	}
	last.stats = fmt.Sprintf("%s · %d tokens · %s",
		msg.res.FinishReason, msg.res.GeneratedTokens, msg.res.Duration.Truncate(time.Millisecond))
}

func (m *chatModel) note(format string, args ...any) {
	m.messages = append(m.messages, chatMessage{role: roleNote, content: fmt.Sprintf(format, args...)})
}

func (m *chatModel) command(text string) tea.Cmd {
	fields := strings.Fields(text)
	name, arg := strings.ToLower(fields[0]), ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	switch name {
	case "/quit", "/exit":
		return tea.Quit
	case "/help":
		m.note("%s", chatHelp)
	case "/reset":
		if err := m.sess.ClearMemory(m.ctx); err != nil {
			m.note("reset failed: %v", err)
			return nil
		}
		m.builder.Reset()
		m.messages = nil
		m.note("conversation reset")
	case "/save", "/load":
		if m.store == nil {
			m.note("no session store configured")
			return nil
		}
		if arg == "" {
			m.note("usage: %s <key>", name)
			return nil
		}
		if name == "/save" {
			snap, err := m.sess.SaveState(m.ctx, m.store, arg)
			if err != nil {
				m.note("save failed: %v", err)
				return nil
			}
			m.note("saved %q at position %d", arg, snap.Position)
			return nil
		}
		snap, err := m.sess.LoadState(m.ctx, m.store, arg)
		if err != nil {
			if m.sess.Position() == 0 {
				m.builder.Reset()
			}
			m.note("load failed: %v", err)
			return nil
		}
		m.builder.Reset()
		if snap.Position > 0 {
			m.builder.Resume()
		}
		m.note("loaded %q at position %d", arg, snap.Position)
	default:
		m.note("unknown command %s", name)
	}
	return nil
}

func (m *chatModel) render(md string) string {
	if m.renderer == nil || md == "" {
		return md + "\n"
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md + "\n"
	}
	return out
}

func (m *chatModel) refresh() {
	var sb strings.Builder
	for i, msg := range m.messages {
		switch msg.role {
		case roleUser:
			sb.WriteString(userStyle.Render("YOU") + "\n")
			sb.WriteString(msg.content + "\n\n")
		case roleBot:
			sb.WriteString(botStyle.Render("MODEL") + "\n")
			if m.streaming && i == len(m.messages)-1 {
				sb.WriteString(msg.content + "▌\n")
			} else {
				sb.WriteString(m.render(msg.content))
			}
			if msg.stats != "" {
				sb.WriteString(statsStyle.Render(msg.stats) + "\n")
			}
			sb.WriteString("\n")
		case roleNote:
			sb.WriteString(noteStyle.Render(msg.content) + "\n\n")
		}
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

func (m *chatModel) View() string {
	if !m.ready {
		return "\n  Loading..."
	}
	status := chatHelp
	if m.stopping {
		status = "stopping..."
	} else if m.streaming {
		status = "generating · ctrl+c to stop"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("streamd chat"),
		borderStyle.Render(m.viewport.View()),
		m.textarea.View(),
		helpStyle.Render(status),
	)
}

func newChatCmd(g *globalFlags) *cobra.Command {
	var (
		model   string
		system  string
		logFile string
		stop    []string
		maxTok  int
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with one model in this process",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			// The terminal belongs to the UI; logs go to a file or nowhere.
			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			log, err := newLogger(cfg.LogLevel, "json", w)
			if err != nil {
				return err
			}
			sess, err := openSession(cfg, model, log)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.State.Store, cfg.StoreLocation())
			if err != nil {
				log.Warn().Err(err).Msg("session store unavailable")
			} else {
				defer st.Close()
			}

			ctx := cmd.Context()
			opts := chatOptions{system: system, params: sampling.Params{MaxTokens: maxTok}, stop: stop}
			m := newChatModel(ctx, sess, st, opts, nil)
			_, runErr := tea.NewProgram(m, tea.WithAltScreen()).Run()
			sess.Stop()
			if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("close session")
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model id or path (defaults to --default-model)")
	cmd.Flags().StringVar(&system, "system", "", "System prompt")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file")
	cmd.Flags().StringArrayVar(&stop, "stop", nil, "Stop string (repeatable)")
	cmd.Flags().IntVar(&maxTok, "max-tokens", 0, "Maximum tokens per reply")
	return cmd
}
