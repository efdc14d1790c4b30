package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"streamd/internal/controller"
	"streamd/internal/prompt"
	"streamd/internal/sampling"
)

type generateFlags struct {
	model       string
	maxTokens   int
	temperature float32
	topK        int
	topP        float32
	seed        uint64
	stop        []string
	chat        bool
	system      string
	stats       bool
}

func newGenerateCmd(g *globalFlags) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Stream one completion to stdout",
		Long:  "Stream one completion to stdout. With no prompt argument, or \"-\", the prompt is read from stdin.",
		Example: "  streamd generate -m Llama-3.2-1B-Instruct-Q4_K_M.gguf --chat \"Name three rivers\"\n" +
			"  echo \"Once upon a time\" | streamd generate --max-tokens 64",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			text, err := readPrompt(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			sess, err := openSession(cfg, f.model, log)
			if err != nil {
				return err
			}
			defer sess.Close(context.WithoutCancel(cmd.Context()))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			res, err := generate(ctx, sess, f.request(text), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if f.stats {
				fmt.Fprintf(cmd.ErrOrStderr(), "\n[%s] prompt=%d generated=%d extra=%d position=%d %s\n",
					res.FinishReason, res.PromptTokens, res.GeneratedTokens, res.ExtraTokens, res.Position, res.Duration.Round(time.Millisecond))
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.model, "model", "m", "", "Model id or path (defaults to --default-model)")
	fl.IntVar(&f.maxTokens, "max-tokens", 0, "Maximum tokens to generate")
	fl.Float32Var(&f.temperature, "temperature", 0, "Sampling temperature")
	fl.IntVar(&f.topK, "top-k", 0, "Top-k truncation")
	fl.Float32Var(&f.topP, "top-p", 0, "Nucleus truncation")
	fl.Uint64Var(&f.seed, "seed", 0, "Seed for a deterministic draw (0=random)")
	fl.StringArrayVar(&f.stop, "stop", nil, "Stop string (repeatable)")
	fl.BoolVar(&f.chat, "chat", false, "Wrap the prompt in the chat template")
	fl.StringVar(&f.system, "system", "", "System prompt used with --chat")
	fl.BoolVar(&f.stats, "stats", false, "Print a summary line to stderr")
	return cmd
}

func (f *generateFlags) request(text string) controller.Request {
	if f.chat {
		text = prompt.Format(f.system, []prompt.Message{{Role: prompt.RoleUser, Content: text}})
	}
	return controller.Request{
		Prompt: text,
		Params: sampling.Params{
			MaxTokens:   f.maxTokens,
			Temperature: f.temperature,
			TopK:        f.topK,
			TopP:        f.topP,
			Seed:        f.seed,
		},
		Stop: f.stop,
	}
}

func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	text := strings.TrimRight(string(b), "\r\n")
	if text == "" {
		return "", fmt.Errorf("empty prompt")
	}
	return text, nil
}

// generate streams fragments to w as they arrive.
func generate(ctx context.Context, sess *controller.Session, req controller.Request, w io.Writer) (controller.Result, error) {
	var werr error
	sink := controller.SinkFuncs{
		Fragment: func(s string) {
			if werr == nil {
				_, werr = io.WriteString(w, s)
				if werr != nil {
					sess.Stop()
				}
			}
		},
	}
	res, err := sess.Generate(ctx, req, sink)
	if err != nil {
		return res, err
	}
	if werr != nil {
		return res, werr
	}
	_, err = io.WriteString(w, "\n")
	return res, err
}
