package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/p7/format"
	"github.com/dhamidi/p7/generate"
	"github.com/dhamidi/p7/typing"
)

// sessionFlags configure the generator of a command.
type sessionFlags struct {
	binds map[string]string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringToStringVar(&f.binds, "bind", nil, "variable in scope before the text, as name=Type")
}

func (f *sessionFlags) options() []generate.Option {
	if len(f.binds) == 0 {
		return nil
	}
	ctx := typing.NewContext()
	for name, t := range f.binds {
		ctx.Bind(name, typing.Type{Name: t})
	}
	return []generate.Option{generate.WithContext(ctx)}
}

// inputText joins args, or reads standard input when there are none.
func inputText(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func newFeedCmd(opts *options) *cobra.Command {
	var session sessionFlags
	var raw bool

	cmd := &cobra.Command{
		Use:   "feed [token]...",
		Short: "Feed tokens one at a time and report the session state",
		Long: `Feed appends each token to the text, stopping at the first token that is
rejected. Tokens are joined with a space unless --raw is given. Without
arguments the text is read from standard input and fed at once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, name, err := opts.load()
			if err != nil {
				return err
			}
			enc, err := format.NewEncoder(opts.format, os.Stdout)
			if err != nil {
				return err
			}

			gen := generate.New(g, session.options()...)

			var tokens []string
			if len(args) > 0 {
				tokens = args
			} else {
				text, err := inputText(nil)
				if err != nil {
					return err
				}
				tokens = []string{text}
				raw = true
			}

			ok, ferr := true, error(nil)
			for _, tok := range tokens {
				if raw {
					ok, ferr = gen.FeedRaw(tok)
				} else {
					ok, ferr = gen.Feed(tok)
				}
				if !ok {
					break
				}
			}

			if err := enc.Encode(format.NewReport(name, gen, ok, ferr)); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			if !ok {
				return fmt.Errorf("rejected after %q", gen.CurrentText())
			}
			return nil
		},
	}

	session.register(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "append tokens without separators")

	return cmd
}
