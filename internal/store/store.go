package store

import (
	"context"
	"time"

	"github.com/sells-group/healthqa-cli/internal/model"
)

// FindingFilter specifies criteria for listing audit rows.
type FindingFilter struct {
	Severity  model.Severity      `json:"severity,omitempty"`
	Status    model.FindingStatus `json:"status,omitempty"`
	CheckType model.CheckType     `json:"check_type,omitempty"`
	TableName string              `json:"table_name,omitempty"`
	RunID     string              `json:"run_id,omitempty"`
	Limit     int                 `json:"limit,omitempty"`
	Offset    int                 `json:"offset,omitempty"`
}

// MetricFilter specifies criteria for listing metric rows.
type MetricFilter struct {
	Category string    `json:"category,omitempty"`
	Since    time.Time `json:"since,omitempty"`
	Limit    int       `json:"limit,omitempty"`
}

// Store defines the persistence interface for the quality checker. The
// five source tables are read-only; only quality_check_runs,
// quality_audit_log, and quality_metrics are written, and always
// additively.
type Store interface {
	// Snapshot (read-only source data)
	LoadSnapshot(ctx context.Context) (*model.Snapshot, error)

	// Runs and findings (append-only audit log)
	CreateRun(ctx context.Context, evalTime time.Time) (*model.CheckRun, error)
	InsertFindings(ctx context.Context, runID string, findings []model.Finding) error
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, reason string) error
	ListFindings(ctx context.Context, filter FindingFilter) ([]model.Finding, error)
	OpenFindingKeys(ctx context.Context) (map[model.FindingKey]struct{}, error)
	UpdateFindingStatus(ctx context.Context, findingID string, status model.FindingStatus, assignedTo, notes *string, resolvedAt *time.Time) error

	// Metrics (append-only time series)
	InsertMetrics(ctx context.Context, metrics []model.Metric) error
	ListMetrics(ctx context.Context, filter MetricFilter) ([]model.Metric, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
