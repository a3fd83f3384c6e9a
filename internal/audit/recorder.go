package audit

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/healthqa-cli/internal/config"
	"github.com/sells-group/healthqa-cli/internal/model"
	"github.com/sells-group/healthqa-cli/internal/store"
)

// Recorder persists check findings to the audit log. Each call to Record
// creates a run row, writes all findings under it in one transaction, and
// closes the run with a summary. The audit log is append-only; a failed
// persistence attempt marks the run failed and returns the error with the
// findings untouched in memory.
type Recorder struct {
	store store.Store
	cfg   config.AuditConfig
	log   *zap.Logger
}

// NewRecorder returns a Recorder writing through the given store.
func NewRecorder(st store.Store, cfg config.AuditConfig) *Recorder {
	return &Recorder{
		store: st,
		cfg:   cfg,
		log:   zap.L().With(zap.String("component", "audit")),
	}
}

// Record persists a finding set produced by a check run and returns the
// run summary. When dedup_open_findings is enabled, findings whose
// (check_type, table_name, record_id, issue_type) already has an OPEN
// audit row are suppressed and counted in the summary instead of written.
func (r *Recorder) Record(ctx context.Context, findings []model.Finding, evalTime time.Time, checksRun int) (*model.RunSummary, error) {
	run, err := r.store.CreateRun(ctx, evalTime)
	if err != nil {
		return nil, eris.Wrap(err, "audit: create run")
	}

	toWrite := findings
	suppressed := 0
	if r.cfg.DedupOpenFindings {
		toWrite, suppressed, err = r.dedup(ctx, findings)
		if err != nil {
			r.failRun(ctx, run.ID, err)
			return nil, err
		}
	}

	if err := r.store.InsertFindings(ctx, run.ID, toWrite); err != nil {
		r.failRun(ctx, run.ID, err)
		return nil, eris.Wrapf(err, "audit: persist findings for run %s", run.ID)
	}

	summary := model.Summarize(run.ID, evalTime, checksRun, toWrite, suppressed)
	if err := r.store.CompleteRun(ctx, run.ID, summary); err != nil {
		return nil, eris.Wrapf(err, "audit: complete run %s", run.ID)
	}

	r.log.Info("run recorded",
		zap.String("run_id", run.ID),
		zap.Int("findings", summary.TotalFindings),
		zap.Int("suppressed", suppressed),
		zap.String("status", summary.Status),
	)
	return summary, nil
}

func (r *Recorder) dedup(ctx context.Context, findings []model.Finding) ([]model.Finding, int, error) {
	open, err := r.store.OpenFindingKeys(ctx)
	if err != nil {
		return nil, 0, eris.Wrap(err, "audit: load open finding keys")
	}

	kept := make([]model.Finding, 0, len(findings))
	suppressed := 0
	for _, f := range findings {
		if _, exists := open[f.Key()]; exists {
			suppressed++
			continue
		}
		kept = append(kept, f)
	}
	return kept, suppressed, nil
}

func (r *Recorder) failRun(ctx context.Context, runID string, cause error) {
	if err := r.store.FailRun(ctx, runID, cause.Error()); err != nil {
		r.log.Error("mark run failed", zap.String("run_id", runID), zap.Error(err))
	}
}

// RecordMetrics appends a metric batch to the time series.
func (r *Recorder) RecordMetrics(ctx context.Context, metrics []model.Metric) error {
	if err := r.store.InsertMetrics(ctx, metrics); err != nil {
		return eris.Wrap(err, "audit: persist metrics")
	}
	r.log.Info("metrics recorded", zap.Int("count", len(metrics)))
	return nil
}
