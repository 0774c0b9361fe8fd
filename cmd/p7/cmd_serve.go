package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/p7/api"
	"github.com/dhamidi/p7/metrics"
)

var log = commonlog.GetLogger("p7")

func newServeCmd(opts *options) *cobra.Command {
	var listen string
	var noMetrics bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.proj.Config
			if listen == "" {
				listen = cfg.Listen
			}

			h := api.NewHandlers(opts.proj).WithVersion(version)
			if cfg.Metrics && !noMetrics {
				h.WithMetrics(metrics.New())
			}
			if cfg.Vocab != "" {
				vocab, err := opts.proj.LoadVocab()
				if err != nil {
					return err
				}
				log.Infof("loaded vocabulary of %d tokens", len(vocab))
				h.WithVocab(vocab)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return api.Serve(ctx, listen, api.NewRouter(h))
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (default from p7.yaml)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the /metrics endpoint")

	return cmd
}
