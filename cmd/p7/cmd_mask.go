package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dhamidi/p7/format"
	"github.com/dhamidi/p7/logits"
	"github.com/dhamidi/p7/project"
)

func newMaskCmd(opts *options) *cobra.Command {
	var session sessionFlags
	var vocabFile string
	var eos int
	var jobs int

	cmd := &cobra.Command{
		Use:   "mask <text>...",
		Short: "Print the vocabulary tokens allowed after each text",
		Long: `Mask computes, for every text argument, the ids of the vocabulary tokens that
keep the text a valid prefix. The texts are processed concurrently. The
vocabulary comes from --vocab or the project configuration.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, name, err := opts.load()
			if err != nil {
				return err
			}
			enc, err := format.NewEncoder(opts.format, os.Stdout)
			if err != nil {
				return err
			}

			var vocab []string
			if vocabFile != "" {
				vocab, err = project.ReadVocabFile(vocabFile)
			} else {
				vocab, err = opts.proj.LoadVocab()
			}
			if err != nil {
				return fmt.Errorf("load vocabulary: %w", err)
			}

			procOpts := []logits.Option{logits.WithGenerator(session.options()...)}
			switch {
			case cmd.Flags().Changed("eos"):
				procOpts = append(procOpts, logits.WithEOS(eos))
			case opts.proj.Config.EOS != nil:
				procOpts = append(procOpts, logits.WithEOS(*opts.proj.Config.EOS))
			}

			base := logits.New(g, procOpts...)
			if err := base.InitVocab(vocab); err != nil {
				return err
			}

			procs := make([]*logits.Processor, len(args))
			results := make([]struct {
				ok  bool
				err error
			}, len(args))
			for i, text := range args {
				procs[i] = base.Clone()
				results[i].ok, results[i].err = procs[i].FeedToken(text)
			}

			allowed, err := logits.AllowedTokensBatch(cmd.Context(), procs, jobs)
			if err != nil {
				return err
			}

			for i, p := range procs {
				r := format.NewReport(name, p.Generator(), results[i].ok, results[i].err)
				if err := enc.Encode(r.WithMask(vocab, allowed[i])); err != nil {
					return fmt.Errorf("encode: %w", err)
				}
			}
			return nil
		},
	}

	session.register(cmd)
	cmd.Flags().StringVar(&vocabFile, "vocab", "", "vocabulary file (JSON array or one token per line, optionally .zst)")
	cmd.Flags().IntVar(&eos, "eos", 0, "end-of-sequence token id")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.GOMAXPROCS(0), "texts processed concurrently")

	return cmd
}
