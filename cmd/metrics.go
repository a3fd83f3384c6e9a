package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/healthqa-cli/internal/audit"
)

var (
	metricsAsOf   string
	metricsDryRun bool
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Compute quality metrics and append them to the time series",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		evalTime, err := parseAsOf(metricsAsOf)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		snap, err := st.LoadSnapshot(ctx)
		if err != nil {
			return eris.Wrap(err, "load snapshot")
		}

		metrics := audit.NewAggregator(cfg.Metrics).ComputeMetrics(snap, evalTime)

		if !metricsDryRun {
			if err := audit.NewRecorder(st, cfg.Audit).RecordMetrics(ctx, metrics); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(metrics)
	},
}

func init() {
	metricsCmd.Flags().StringVar(&metricsAsOf, "as-of", "", "evaluation timestamp, RFC3339 (default now)")
	metricsCmd.Flags().BoolVar(&metricsDryRun, "dry-run", false, "print metrics without persisting")
	rootCmd.AddCommand(metricsCmd)
}
