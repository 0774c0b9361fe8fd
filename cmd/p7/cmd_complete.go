package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/p7/generate"
)

func newCompleteCmd(opts *options) *cobra.Command {
	var session sessionFlags
	var patterns bool
	var check []string

	cmd := &cobra.Command{
		Use:   "complete [text]...",
		Short: "Print what may follow a text",
		Long: `Complete feeds the text and prints one completion per line: the example of
each completion, or its pattern when it has none. With --check only the given
candidates that would be accepted are printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := opts.load()
			if err != nil {
				return err
			}
			text, err := inputText(args)
			if err != nil {
				return err
			}

			gen := generate.New(g, session.options()...)
			ok, err := gen.FeedRaw(text)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("text is not a valid prefix: %q", text)
			}

			if opts.format == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(gen.DebugCompletions())
			}

			var out []string
			switch {
			case len(check) > 0:
				out = gen.FilterCompletions(check)
			case patterns:
				out = gen.ValidPatterns()
			default:
				out = gen.Completions()
			}
			for _, c := range out {
				fmt.Printf("%q\n", c)
			}
			return nil
		},
	}

	session.register(cmd)
	cmd.Flags().BoolVar(&patterns, "patterns", false, "print patterns instead of examples")
	cmd.Flags().StringArrayVar(&check, "check", nil, "candidate continuation to test (repeatable)")

	return cmd
}
