// Command build infers the diffusion edges of every stored post and writes
// them back to the store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rusni-pyzda/twitter-cascades/cascade"
	"github.com/rusni-pyzda/twitter-cascades/common"
	"github.com/rusni-pyzda/twitter-cascades/state"
)

var log = common.NewLogger("build")

type flags struct {
	config  string
	policy  string
	workers int
}

func options(cfg *common.Config, f flags) (cascade.Options, error) {
	name := cfg.Build.Policy
	if f.policy != "" {
		name = f.policy
	}
	policy, err := cascade.PolicyByName(name)
	if err != nil {
		return cascade.Options{}, err
	}
	workers := cfg.Build.Workers
	if f.workers > 0 {
		workers = f.workers
	}
	return cascade.Options{
		Workers:        workers,
		BatchSize:      cfg.Build.BatchSize,
		Policy:         policy,
		StrictOrdering: cfg.Build.StrictOrdering,
		Logger:         log,
	}, nil
}

func run(ctx context.Context, f flags) error {
	cfg, err := common.Load(f.config)
	if err != nil {
		return err
	}
	opts, err := options(cfg, f)
	if err != nil {
		return err
	}
	s, err := state.New(cfg.Database)
	if err != nil {
		return err
	}
	defer s.Close()

	index, err := s.FollowingIndex(ctx)
	if err != nil {
		return err
	}
	posts, err := s.Posts(ctx)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"posts":           len(posts),
		"following_lists": index.Len(),
	}).Info("Building diffusion trees")

	var report *cascade.Report
	err = s.RebuildEdges(ctx, func(sink cascade.Sink) error {
		var err error
		report, err = cascade.NewAssembler(index, opts).Run(ctx, posts, sink)
		return err
	})
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"posts":        report.Posts,
		"cascades":     report.Cascades,
		"edges":        report.Edges,
		"skipped":      len(report.Skipped),
		"reordered":    len(report.Reordered),
		"direct_share": report.DirectShare(),
	}).Info("Done")
	return nil
}

func main() {
	var f flags
	rootCmd := &cobra.Command{
		Use:          "build",
		Short:        "Infer diffusion edges for every stored post",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}
	rootCmd.Flags().StringVar(&f.config, "config", "config.yaml", "Path to the config file")
	rootCmd.Flags().StringVar(&f.policy, "policy", "", "Target policy (earlybird, recent-follow); overrides the config")
	rootCmd.Flags().IntVar(&f.workers, "workers", 0, "Concurrent posts; overrides the config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.WithError(err).Fatal("Build failed")
	}
}
