package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhamidi/p7/ebnf/parse"
	"github.com/dhamidi/p7/generate"
)

func newSExprCmd(opts *options) *cobra.Command {
	var session sessionFlags
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "sexpr [text]...",
		Short: "Print the parse tree of a complete text as an S-expression",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := opts.load()
			if err != nil {
				return err
			}
			f, ok := parse.ParseFormat(outputFormat)
			if !ok {
				return fmt.Errorf("unknown style: %s", outputFormat)
			}
			text, err := inputText(args)
			if err != nil {
				return err
			}

			gen := generate.New(g, session.options()...)
			ok, err = gen.FeedRaw(text)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("text does not parse: %q", text)
			}

			out, err := gen.SExpr(f)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}

	session.register(cmd)
	cmd.Flags().StringVar(&outputFormat, "style", "canonical", "layout (canonical, compact, indented, pretty)")

	return cmd
}
