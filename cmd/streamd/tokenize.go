package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTokenizeCmd(g *globalFlags) *cobra.Command {
	var (
		model string
		count bool
	)
	cmd := &cobra.Command{
		Use:   "tokenize [text]",
		Short: "Print the token ids for text",
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
			sess, err := openSession(cfg, model, log)
			if err != nil {
				return err
			}
			defer sess.Close(context.WithoutCancel(cmd.Context()))
			toks, err := sess.Tokenize(cmd.Context(), text)
			if err != nil {
				return err
			}
			if count {
				fmt.Fprintln(cmd.OutOrStdout(), len(toks))
				return nil
			}
			ids := make([]string, len(toks))
			for i, t := range toks {
				ids[i] = fmt.Sprint(t)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(ids, " "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model id or path (defaults to --default-model)")
	cmd.Flags().BoolVar(&count, "count", false, "Print only the number of tokens")
	return cmd
}
