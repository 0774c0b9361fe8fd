package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/project"
)

const version = "0.1.0"

// options are the flags shared by every command.
type options struct {
	root      string
	grammar   string
	format    string
	verbosity int
	logFile   string

	proj *project.Project
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "p7",
		Short:         "Grammar and type constrained text generation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.root, "project", "C", ".", "project directory")
	flags.StringVarP(&opts.grammar, "grammar", "g", "", "grammar name or .spec file (default from p7.yaml)")
	flags.StringVarP(&opts.format, "format", "o", "line", "output format (line, json)")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "increase log verbosity")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to a file instead of stderr")

	rootCmd.AddCommand(newGrammarCmd(opts))
	rootCmd.AddCommand(newFeedCmd(opts))
	rootCmd.AddCommand(newCompleteCmd(opts))
	rootCmd.AddCommand(newMaskCmd(opts))
	rootCmd.AddCommand(newSExprCmd(opts))
	rootCmd.AddCommand(newRegexCmd())
	rootCmd.AddCommand(newLSPCmd())
	rootCmd.AddCommand(newServeCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		printErrors(err)
		os.Exit(1)
	}
}

func (o *options) setup(cmd *cobra.Command) error {
	proj, err := project.LoadFrom(o.root)
	if err != nil {
		return err
	}
	o.proj = proj

	verbosity := proj.Config.Verbosity
	if cmd.Flags().Changed("verbose") {
		verbosity = o.verbosity
	}
	var path *string
	if o.logFile != "" {
		path = &o.logFile
	}
	commonlog.Configure(verbosity, path)
	return nil
}

// load compiles the selected grammar and returns it with its name.
func (o *options) load() (grammar.Grammar, string, error) {
	name := o.grammar
	if name == "" {
		name = o.proj.Config.Grammar
	}
	g, err := o.proj.LoadGrammar(name)
	if err != nil {
		return grammar.Grammar{}, "", err
	}
	return g, name, nil
}

func printErrors(err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			fmt.Fprintln(os.Stderr, e)
		}
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
