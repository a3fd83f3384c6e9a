package main

import (
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/healthqa-cli/internal/audit"
	"github.com/sells-group/healthqa-cli/internal/model"
	"github.com/sells-group/healthqa-cli/internal/quality"
)

var (
	checkAsOf     string
	checkParallel int
	checkDryRun   bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the quality check battery and record findings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		evalTime, err := parseAsOf(checkAsOf)
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

		checkCfg := cfg.Check
		if checkParallel > 0 {
			checkCfg.Parallelism = checkParallel
		}
		ev := quality.NewEvaluator(checkCfg)

		findings, checksRun := ev.RunAll(ctx, snap, evalTime)
		zap.L().Info("checks complete",
			zap.Int("checks_run", checksRun),
			zap.Int("findings", len(findings)),
		)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		if checkDryRun {
			return enc.Encode(struct {
				Summary  *model.RunSummary `json:"summary"`
				Findings []model.Finding   `json:"findings"`
			}{
				Summary:  model.Summarize("", evalTime, checksRun, findings, 0),
				Findings: findings,
			})
		}

		summary, err := audit.NewRecorder(st, cfg.Audit).Record(ctx, findings, evalTime, checksRun)
		if err != nil {
			return err
		}
		return enc.Encode(summary)
	},
}

// parseAsOf resolves the evaluation timestamp for a run. All checks and
// metrics measure against this single instant.
func parseAsOf(asOf string) (time.Time, error) {
	if asOf == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, asOf)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse --as-of %q", asOf)
	}
	return t.UTC(), nil
}

func init() {
	checkCmd.Flags().StringVar(&checkAsOf, "as-of", "", "evaluation timestamp, RFC3339 (default now)")
	checkCmd.Flags().IntVar(&checkParallel, "parallel", 0, "run checks with this many workers (default from config)")
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "print findings without persisting")
	rootCmd.AddCommand(checkCmd)
}
