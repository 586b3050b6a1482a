// Command render exports the stored edge table as CSV.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rusni-pyzda/twitter-cascades/cascade"
	"github.com/rusni-pyzda/twitter-cascades/common"
	"github.com/rusni-pyzda/twitter-cascades/state"
)

var log = common.NewLogger("render")

// export streams every stored edge to w and returns the number written.
func export(ctx context.Context, s *state.Store, w io.Writer) (int, error) {
	ew, err := newEdgeWriter(w)
	if err != nil {
		return 0, err
	}
	n := 0
	err = s.EachEdge(ctx, func(e cascade.Edge) error {
		n++
		return ew.Write(e)
	})
	if err != nil {
		return n, err
	}
	return n, ew.Flush()
}

func run(ctx context.Context, configPath, output string) error {
	cfg, err := common.Load(configPath)
	if err != nil {
		return err
	}
	if output == "" {
		output = cfg.Output
	}
	s, err := state.New(cfg.Database)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("creating directories for %q: %w", output, err)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", output, err)
	}
	n, err := export(ctx, s, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %q: %w", output, err)
	}
	log.WithField("edges", n).WithField("output", output).Info("Wrote edge table")
	return nil
}

func main() {
	var configPath, output string
	rootCmd := &cobra.Command{
		Use:          "render",
		Short:        "Export the stored edge table as CSV",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, output)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "config.yaml", "Path to the config file")
	rootCmd.Flags().StringVar(&output, "output", "", "Path of the CSV file; overrides the config")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.WithError(err).Fatal("Render failed")
	}
}
