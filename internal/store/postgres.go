package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/healthqa-cli/internal/db"
	"github.com/sells-group/healthqa-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Migrate creates the owned tables. The source tables (patient_records,
// providers, claims, claims_line_items, encounters) belong to the
// external system of record and are never created or altered here.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS quality_check_runs (
	id              TEXT PRIMARY KEY,
	status          TEXT NOT NULL DEFAULT 'running',
	evaluation_time TIMESTAMPTZ NOT NULL,
	started_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at    TIMESTAMPTZ,
	summary         JSONB
);

CREATE TABLE IF NOT EXISTS quality_audit_log (
	id                TEXT PRIMARY KEY,
	run_id            TEXT NOT NULL REFERENCES quality_check_runs(id),
	check_timestamp   TIMESTAMPTZ NOT NULL,
	check_type        TEXT NOT NULL,
	table_name        TEXT NOT NULL,
	record_id         TEXT NOT NULL,
	issue_type        TEXT NOT NULL,
	issue_description TEXT NOT NULL,
	severity          TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'OPEN',
	details           JSONB,
	assigned_to       TEXT,
	resolution_notes  TEXT,
	resolved_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_audit_run_id ON quality_audit_log(run_id);
CREATE INDEX IF NOT EXISTS idx_audit_status ON quality_audit_log(status);
CREATE INDEX IF NOT EXISTS idx_audit_severity ON quality_audit_log(severity);
CREATE INDEX IF NOT EXISTS idx_audit_check_type ON quality_audit_log(check_type);
CREATE INDEX IF NOT EXISTS idx_audit_open_keys ON quality_audit_log(check_type, table_name, record_id, issue_type) WHERE status = 'OPEN';

CREATE TABLE IF NOT EXISTS quality_metrics (
	id           TEXT PRIMARY KEY,
	metric_date  TIMESTAMPTZ NOT NULL,
	metric_name  TEXT NOT NULL,
	metric_value NUMERIC NOT NULL,
	target_value NUMERIC NOT NULL,
	category     TEXT NOT NULL,
	notes        TEXT
);

CREATE INDEX IF NOT EXISTS idx_metrics_date ON quality_metrics(metric_date);
CREATE INDEX IF NOT EXISTS idx_metrics_name ON quality_metrics(metric_name);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// LoadSnapshot reads all five source tables into memory. Any read error
// is fatal to the run; no partial snapshot is returned.
func (s *PostgresStore) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	patients, err := s.loadPatients(ctx)
	if err != nil {
		return nil, err
	}
	providers, err := s.loadProviders(ctx)
	if err != nil {
		return nil, err
	}
	claims, err := s.loadClaims(ctx)
	if err != nil {
		return nil, err
	}
	lineItems, err := s.loadLineItems(ctx)
	if err != nil {
		return nil, err
	}
	encounters, err := s.loadEncounters(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewSnapshot(patients, providers, claims, lineItems, encounters), nil
}

func (s *PostgresStore) loadPatients(ctx context.Context) ([]model.PatientRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT patient_id, name, date_of_birth, insurance_id, primary_provider,
		        contact_phone, contact_email, is_active, created_at, updated_at
		 FROM patient_records`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load patients")
	}
	defer rows.Close()

	var patients []model.PatientRecord
	for rows.Next() {
		var p model.PatientRecord
		if err := rows.Scan(&p.PatientID, &p.Name, &p.DateOfBirth, &p.InsuranceID,
			&p.PrimaryProvider, &p.ContactPhone, &p.ContactEmail,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan patient")
		}
		patients = append(patients, p)
	}
	return patients, eris.Wrap(rows.Err(), "postgres: load patients iterate")
}

func (s *PostgresStore) loadProviders(ctx context.Context) ([]model.Provider, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT provider_id, provider_name, npi_number, license_number, license_state,
		        license_expiry_date, specialty, contact_email, is_active
		 FROM providers`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load providers")
	}
	defer rows.Close()

	var providers []model.Provider
	for rows.Next() {
		var p model.Provider
		if err := rows.Scan(&p.ProviderID, &p.ProviderName, &p.NPINumber, &p.LicenseNumber,
			&p.LicenseState, &p.LicenseExpiryDate, &p.Specialty, &p.ContactEmail,
			&p.IsActive); err != nil {
			return nil, eris.Wrap(err, "postgres: scan provider")
		}
		providers = append(providers, p)
	}
	return providers, eris.Wrap(rows.Err(), "postgres: load providers iterate")
}

func (s *PostgresStore) loadClaims(ctx context.Context) ([]model.Claim, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT claim_id, patient_id, provider_id, claim_total_amount,
		        service_date, submission_date, processing_date, status,
		        insurance_paid_amount, patient_responsibility, adjustment_amount
		 FROM claims`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load claims")
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var c model.Claim
		var total, paid, responsibility, adjustment *float64
		if err := rows.Scan(&c.ClaimID, &c.PatientID, &c.ProviderID, &total,
			&c.ServiceDate, &c.SubmissionDate, &c.ProcessingDate, &c.Status,
			&paid, &responsibility, &adjustment); err != nil {
			return nil, eris.Wrap(err, "postgres: scan claim")
		}
		c.ClaimTotalAmount = decimalOrZero(total)
		c.InsurancePaidAmount = decimalPtr(paid)
		c.PatientResponsibility = decimalPtr(responsibility)
		c.AdjustmentAmount = decimalPtr(adjustment)
		claims = append(claims, c)
	}
	return claims, eris.Wrap(rows.Err(), "postgres: load claims iterate")
}

func (s *PostgresStore) loadLineItems(ctx context.Context) ([]model.ClaimLineItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT line_item_id, claim_id, line_item_amount, quantity, unit_price
		 FROM claims_line_items`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load line items")
	}
	defer rows.Close()

	var items []model.ClaimLineItem
	for rows.Next() {
		var li model.ClaimLineItem
		var amount, unitPrice *float64
		if err := rows.Scan(&li.LineItemID, &li.ClaimID, &amount, &li.Quantity, &unitPrice); err != nil {
			return nil, eris.Wrap(err, "postgres: scan line item")
		}
		li.LineItemAmount = decimalOrZero(amount)
		li.UnitPrice = decimalOrZero(unitPrice)
		items = append(items, li)
	}
	return items, eris.Wrap(rows.Err(), "postgres: load line items iterate")
}

func (s *PostgresStore) loadEncounters(ctx context.Context) ([]model.Encounter, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT encounter_id, patient_id, provider_id, encounter_date,
		        documentation_complete, billing_submitted
		 FROM encounters`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load encounters")
	}
	defer rows.Close()

	var encounters []model.Encounter
	for rows.Next() {
		var en model.Encounter
		if err := rows.Scan(&en.EncounterID, &en.PatientID, &en.ProviderID,
			&en.EncounterDate, &en.DocumentationComplete, &en.BillingSubmitted); err != nil {
			return nil, eris.Wrap(err, "postgres: scan encounter")
		}
		encounters = append(encounters, en)
	}
	return encounters, eris.Wrap(rows.Err(), "postgres: load encounters iterate")
}

func (s *PostgresStore) CreateRun(ctx context.Context, evalTime time.Time) (*model.CheckRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO quality_check_runs (id, status, evaluation_time, started_at) VALUES ($1, $2, $3, $4)`,
		id, string(model.RunStateRunning), evalTime, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.CheckRun{
		ID:             id,
		Status:         model.RunStateRunning,
		EvaluationTime: evalTime,
		StartedAt:      now,
	}, nil
}

var auditColumns = []string{
	"id", "run_id", "check_timestamp", "check_type", "table_name", "record_id",
	"issue_type", "issue_description", "severity", "status", "details",
	"assigned_to", "resolution_notes", "resolved_at",
}

// InsertFindings appends all findings of a run in one transaction via
// COPY. Either the whole run's findings land or none do.
func (s *PostgresStore) InsertFindings(ctx context.Context, runID string, findings []model.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(findings))
	for _, f := range findings {
		id := f.ID
		if id == "" {
			id = uuid.New().String()
		}
		var details []byte
		if len(f.Details) > 0 {
			b, err := json.Marshal(f.Details)
			if err != nil {
				return eris.Wrapf(err, "postgres: marshal finding details %s", id)
			}
			details = b
		}
		rows = append(rows, []any{
			id, runID, f.CheckTimestamp, string(f.CheckType), f.TableName, f.RecordID,
			string(f.IssueType), f.Description, string(f.Severity), string(f.Status),
			details, f.AssignedTo, f.ResolutionNotes, f.ResolvedAt,
		})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin findings tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"quality_audit_log"}, auditColumns, pgx.CopyFromRows(rows)); err != nil {
		return eris.Wrapf(err, "postgres: COPY findings for run %s", runID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit findings tx")
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE quality_check_runs SET status = $1, completed_at = $2, summary = $3 WHERE id = $4`,
		string(model.RunStateComplete), time.Now().UTC(), summaryJSON, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE quality_check_runs SET status = $1, completed_at = $2, summary = $3 WHERE id = $4`,
		string(model.RunStateFailed), time.Now().UTC(),
		[]byte(fmt.Sprintf(`{"error":%q}`, reason)), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListFindings(ctx context.Context, filter FindingFilter) ([]model.Finding, error) {
	query := `SELECT id, check_timestamp, check_type, table_name, record_id, issue_type,
	                 issue_description, severity, status, details, assigned_to,
	                 resolution_notes, resolved_at
	          FROM quality_audit_log WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Severity != "" {
		query += fmt.Sprintf(` AND severity = $%d`, argIdx)
		args = append(args, string(filter.Severity))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.CheckType != "" {
		query += fmt.Sprintf(` AND check_type = $%d`, argIdx)
		args = append(args, string(filter.CheckType))
		argIdx++
	}
	if filter.TableName != "" {
		query += fmt.Sprintf(` AND table_name = $%d`, argIdx)
		args = append(args, filter.TableName)
		argIdx++
	}
	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, argIdx)
		args = append(args, filter.RunID)
		argIdx++
	}
	query += ` ORDER BY check_timestamp DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list findings")
	}
	defer rows.Close()

	var findings []model.Finding
	for rows.Next() {
		var f model.Finding
		var detailsJSON []byte
		if err := rows.Scan(&f.ID, &f.CheckTimestamp, &f.CheckType, &f.TableName,
			&f.RecordID, &f.IssueType, &f.Description, &f.Severity, &f.Status,
			&detailsJSON, &f.AssignedTo, &f.ResolutionNotes, &f.ResolvedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan finding")
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &f.Details); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal finding details")
			}
		}
		findings = append(findings, f)
	}
	return findings, eris.Wrap(rows.Err(), "postgres: list findings iterate")
}

func (s *PostgresStore) OpenFindingKeys(ctx context.Context) (map[model.FindingKey]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT check_type, table_name, record_id, issue_type
		 FROM quality_audit_log WHERE status = 'OPEN'`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open finding keys")
	}
	defer rows.Close()

	keys := make(map[model.FindingKey]struct{})
	for rows.Next() {
		var k model.FindingKey
		if err := rows.Scan(&k.CheckType, &k.TableName, &k.RecordID, &k.IssueType); err != nil {
			return nil, eris.Wrap(err, "postgres: scan finding key")
		}
		keys[k] = struct{}{}
	}
	return keys, eris.Wrap(rows.Err(), "postgres: open finding keys iterate")
}

func (s *PostgresStore) UpdateFindingStatus(ctx context.Context, findingID string, status model.FindingStatus, assignedTo, notes *string, resolvedAt *time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE quality_audit_log
		 SET status = $1, assigned_to = $2, resolution_notes = $3, resolved_at = $4
		 WHERE id = $5`,
		string(status), assignedTo, notes, resolvedAt, findingID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update finding status %s", findingID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("finding not found: %s", findingID)
	}
	return nil
}

var metricColumns = []string{
	"id", "metric_date", "metric_name", "metric_value", "target_value", "category", "notes",
}

// InsertMetrics appends metric rows. Metrics are never updated in place;
// each reporting run produces fresh rows dated at its evaluation time.
func (s *PostgresStore) InsertMetrics(ctx context.Context, metrics []model.Metric) error {
	rows := make([][]any, 0, len(metrics))
	for _, m := range metrics {
		var notes *string
		if m.Notes != "" {
			notes = &m.Notes
		}
		rows = append(rows, []any{
			uuid.New().String(), m.MetricDate, m.MetricName, m.MetricValue,
			m.TargetValue, m.Category, notes,
		})
	}

	_, err := db.CopyFrom(ctx, s.pool, "quality_metrics", metricColumns, rows)
	return eris.Wrap(err, "postgres: insert metrics")
}

func (s *PostgresStore) ListMetrics(ctx context.Context, filter MetricFilter) ([]model.Metric, error) {
	query := `SELECT metric_date, metric_name, metric_value, target_value, category, notes
	          FROM quality_metrics WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, filter.Category)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND metric_date >= $%d`, argIdx)
		args = append(args, filter.Since)
		argIdx++
	}
	query += ` ORDER BY metric_date DESC, metric_name`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list metrics")
	}
	defer rows.Close()

	var metrics []model.Metric
	for rows.Next() {
		var m model.Metric
		var notes *string
		if err := rows.Scan(&m.MetricDate, &m.MetricName, &m.MetricValue,
			&m.TargetValue, &m.Category, &notes); err != nil {
			return nil, eris.Wrap(err, "postgres: scan metric")
		}
		if notes != nil {
			m.Notes = *notes
		}
		metrics = append(metrics, m)
	}
	return metrics, eris.Wrap(rows.Err(), "postgres: list metrics iterate")
}

func decimalOrZero(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

func decimalPtr(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}
