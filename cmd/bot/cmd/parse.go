package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"signal_relay/internal/parser"
)

type parseOutput struct {
	Kind   string `json:"kind"`
	Signal any    `json:"signal,omitempty"`
}

// classify — та же очередность, что у роутера: сигнал, close, "TP hit".
func classify(text string) parseOutput {
	if sig, ok := parser.Parse(text); ok {
		return parseOutput{Kind: "signal", Signal: sig}
	}
	switch {
	case parser.IsCloseCommand(text):
		return parseOutput{Kind: "close"}
	case parser.IsTargetHit(text):
		return parseOutput{Kind: "target_hit"}
	}
	return parseOutput{Kind: "ignored"}
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [text]",
		Short: "Parse a signal message (argument or stdin) and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(data)
			}

			out, err := sonic.ConfigStd.MarshalIndent(classify(text), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
