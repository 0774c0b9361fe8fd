package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/grammars"
)

func newGrammarCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grammar",
		Short: "Grammar specification tools",
	}

	cmd.AddCommand(newGrammarCheckCmd())
	cmd.AddCommand(newGrammarListCmd(opts))
	cmd.AddCommand(newGrammarShowCmd(opts))

	return cmd
}

func newGrammarCheckCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Compile grammar specifications and report construction errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, filename := range args {
				g, err := grammar.LoadFile(filename)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				if !quiet {
					fmt.Printf("%s\tok\tstart=%s\tproductions=%d\n", filename, g.Start(), len(g.Productions()))
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print errors")

	return cmd
}

func newGrammarListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List project and built-in grammars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, name := range opts.proj.GrammarNames() {
				source := "builtin"
				if f := opts.proj.GrammarFile(name); f != nil {
					source = f.Path
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, grammars.Describe(name).Short, source)
			}
			return w.Flush()
		},
	}
}

func newGrammarShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Print the specification of a grammar",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.grammar = args[0]
			}
			g, _, err := opts.load()
			if err != nil {
				return err
			}
			fmt.Print(g.Source())
			return nil
		},
	}
}
