package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/healthqa-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is intended
// for local development and single-file deployments where the source
// tables have been mirrored into the same database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS quality_check_runs (
	id              TEXT PRIMARY KEY,
	status          TEXT NOT NULL DEFAULT 'running',
	evaluation_time DATETIME NOT NULL,
	started_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at    DATETIME,
	summary         TEXT
);

CREATE TABLE IF NOT EXISTS quality_audit_log (
	id                TEXT PRIMARY KEY,
	run_id            TEXT NOT NULL REFERENCES quality_check_runs(id),
	check_timestamp   DATETIME NOT NULL,
	check_type        TEXT NOT NULL,
	table_name        TEXT NOT NULL,
	record_id         TEXT NOT NULL,
	issue_type        TEXT NOT NULL,
	issue_description TEXT NOT NULL,
	severity          TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'OPEN',
	details           TEXT,
	assigned_to       TEXT,
	resolution_notes  TEXT,
	resolved_at       DATETIME
);

CREATE INDEX IF NOT EXISTS idx_audit_run_id ON quality_audit_log(run_id);
CREATE INDEX IF NOT EXISTS idx_audit_status ON quality_audit_log(status);
CREATE INDEX IF NOT EXISTS idx_audit_severity ON quality_audit_log(severity);
CREATE INDEX IF NOT EXISTS idx_audit_check_type ON quality_audit_log(check_type);

CREATE TABLE IF NOT EXISTS quality_metrics (
	id           TEXT PRIMARY KEY,
	metric_date  DATETIME NOT NULL,
	metric_name  TEXT NOT NULL,
	metric_value REAL NOT NULL,
	target_value REAL NOT NULL,
	category     TEXT NOT NULL,
	notes        TEXT
);

CREATE INDEX IF NOT EXISTS idx_metrics_date ON quality_metrics(metric_date);
CREATE INDEX IF NOT EXISTS idx_metrics_name ON quality_metrics(metric_name);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
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

func (s *SQLiteStore) loadPatients(ctx context.Context) ([]model.PatientRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT patient_id, name, date_of_birth, insurance_id, primary_provider,
		        contact_phone, contact_email, is_active, created_at, updated_at
		 FROM patient_records`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load patients")
	}
	defer rows.Close()

	var patients []model.PatientRecord
	for rows.Next() {
		var p model.PatientRecord
		if err := rows.Scan(&p.PatientID, &p.Name, &p.DateOfBirth, &p.InsuranceID,
			&p.PrimaryProvider, &p.ContactPhone, &p.ContactEmail,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan patient")
		}
		patients = append(patients, p)
	}
	return patients, eris.Wrap(rows.Err(), "sqlite: load patients iterate")
}

func (s *SQLiteStore) loadProviders(ctx context.Context) ([]model.Provider, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider_id, provider_name, npi_number, license_number, license_state,
		        license_expiry_date, specialty, contact_email, is_active
		 FROM providers`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load providers")
	}
	defer rows.Close()

	var providers []model.Provider
	for rows.Next() {
		var p model.Provider
		if err := rows.Scan(&p.ProviderID, &p.ProviderName, &p.NPINumber, &p.LicenseNumber,
			&p.LicenseState, &p.LicenseExpiryDate, &p.Specialty, &p.ContactEmail,
			&p.IsActive); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan provider")
		}
		providers = append(providers, p)
	}
	return providers, eris.Wrap(rows.Err(), "sqlite: load providers iterate")
}

func (s *SQLiteStore) loadClaims(ctx context.Context) ([]model.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT claim_id, patient_id, provider_id, claim_total_amount,
		        service_date, submission_date, processing_date, status,
		        insurance_paid_amount, patient_responsibility, adjustment_amount
		 FROM claims`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load claims")
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var c model.Claim
		var total, paid, responsibility, adjustment *float64
		if err := rows.Scan(&c.ClaimID, &c.PatientID, &c.ProviderID, &total,
			&c.ServiceDate, &c.SubmissionDate, &c.ProcessingDate, &c.Status,
			&paid, &responsibility, &adjustment); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan claim")
		}
		c.ClaimTotalAmount = decimalOrZero(total)
		c.InsurancePaidAmount = decimalPtr(paid)
		c.PatientResponsibility = decimalPtr(responsibility)
		c.AdjustmentAmount = decimalPtr(adjustment)
		claims = append(claims, c)
	}
	return claims, eris.Wrap(rows.Err(), "sqlite: load claims iterate")
}

func (s *SQLiteStore) loadLineItems(ctx context.Context) ([]model.ClaimLineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT line_item_id, claim_id, line_item_amount, quantity, unit_price
		 FROM claims_line_items`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load line items")
	}
	defer rows.Close()

	var items []model.ClaimLineItem
	for rows.Next() {
		var li model.ClaimLineItem
		var amount, unitPrice *float64
		if err := rows.Scan(&li.LineItemID, &li.ClaimID, &amount, &li.Quantity, &unitPrice); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan line item")
		}
		li.LineItemAmount = decimalOrZero(amount)
		li.UnitPrice = decimalOrZero(unitPrice)
		items = append(items, li)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: load line items iterate")
}

func (s *SQLiteStore) loadEncounters(ctx context.Context) ([]model.Encounter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT encounter_id, patient_id, provider_id, encounter_date,
		        documentation_complete, billing_submitted
		 FROM encounters`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load encounters")
	}
	defer rows.Close()

	var encounters []model.Encounter
	for rows.Next() {
		var en model.Encounter
		if err := rows.Scan(&en.EncounterID, &en.PatientID, &en.ProviderID,
			&en.EncounterDate, &en.DocumentationComplete, &en.BillingSubmitted); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan encounter")
		}
		encounters = append(encounters, en)
	}
	return encounters, eris.Wrap(rows.Err(), "sqlite: load encounters iterate")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, evalTime time.Time) (*model.CheckRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quality_check_runs (id, status, evaluation_time, started_at) VALUES (?, ?, ?, ?)`,
		id, string(model.RunStateRunning), evalTime, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.CheckRun{
		ID:             id,
		Status:         model.RunStateRunning,
		EvaluationTime: evalTime,
		StartedAt:      now,
	}, nil
}

func (s *SQLiteStore) InsertFindings(ctx context.Context, runID string, findings []model.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin findings tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO quality_audit_log
		 (id, run_id, check_timestamp, check_type, table_name, record_id, issue_type,
		  issue_description, severity, status, details, assigned_to, resolution_notes, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare finding insert")
	}
	defer stmt.Close()

	for _, f := range findings {
		id := f.ID
		if id == "" {
			id = uuid.New().String()
		}
		var details *string
		if len(f.Details) > 0 {
			b, err := json.Marshal(f.Details)
			if err != nil {
				return eris.Wrapf(err, "sqlite: marshal finding details %s", id)
			}
			d := string(b)
			details = &d
		}
		if _, err := stmt.ExecContext(ctx,
			id, runID, f.CheckTimestamp, string(f.CheckType), f.TableName, f.RecordID,
			string(f.IssueType), f.Description, string(f.Severity), string(f.Status),
			details, f.AssignedTo, f.ResolutionNotes, f.ResolvedAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert finding for run %s", runID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit findings tx")
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE quality_check_runs SET status = ?, completed_at = ?, summary = ? WHERE id = ?`,
		string(model.RunStateComplete), time.Now().UTC(), string(summaryJSON), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quality_check_runs SET status = ?, completed_at = ?, summary = ? WHERE id = ?`,
		string(model.RunStateFailed), time.Now().UTC(),
		fmt.Sprintf(`{"error":%q}`, reason), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListFindings(ctx context.Context, filter FindingFilter) ([]model.Finding, error) {
	query := `SELECT id, check_timestamp, check_type, table_name, record_id, issue_type,
	                 issue_description, severity, status, details, assigned_to,
	                 resolution_notes, resolved_at
	          FROM quality_audit_log WHERE true`
	args := []any{}

	if filter.Severity != "" {
		query += ` AND severity = ?`
		args = append(args, string(filter.Severity))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.CheckType != "" {
		query += ` AND check_type = ?`
		args = append(args, string(filter.CheckType))
	}
	if filter.TableName != "" {
		query += ` AND table_name = ?`
		args = append(args, filter.TableName)
	}
	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	query += ` ORDER BY check_timestamp DESC, id LIMIT ?`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list findings")
	}
	defer rows.Close()

	var findings []model.Finding
	for rows.Next() {
		var f model.Finding
		var details *string
		if err := rows.Scan(&f.ID, &f.CheckTimestamp, &f.CheckType, &f.TableName,
			&f.RecordID, &f.IssueType, &f.Description, &f.Severity, &f.Status,
			&details, &f.AssignedTo, &f.ResolutionNotes, &f.ResolvedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan finding")
		}
		if details != nil && *details != "" {
			if err := json.Unmarshal([]byte(*details), &f.Details); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal finding details")
			}
		}
		findings = append(findings, f)
	}
	return findings, eris.Wrap(rows.Err(), "sqlite: list findings iterate")
}

func (s *SQLiteStore) OpenFindingKeys(ctx context.Context) (map[model.FindingKey]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT check_type, table_name, record_id, issue_type
		 FROM quality_audit_log WHERE status = 'OPEN'`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open finding keys")
	}
	defer rows.Close()

	keys := make(map[model.FindingKey]struct{})
	for rows.Next() {
		var k model.FindingKey
		if err := rows.Scan(&k.CheckType, &k.TableName, &k.RecordID, &k.IssueType); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan finding key")
		}
		keys[k] = struct{}{}
	}
	return keys, eris.Wrap(rows.Err(), "sqlite: open finding keys iterate")
}

func (s *SQLiteStore) UpdateFindingStatus(ctx context.Context, findingID string, status model.FindingStatus, assignedTo, notes *string, resolvedAt *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quality_audit_log
		 SET status = ?, assigned_to = ?, resolution_notes = ?, resolved_at = ?
		 WHERE id = ?`,
		string(status), assignedTo, notes, resolvedAt, findingID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update finding status %s", findingID)
	}
	return checkRowsAffected(res, "finding", findingID)
}

func (s *SQLiteStore) InsertMetrics(ctx context.Context, metrics []model.Metric) error {
	if len(metrics) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin metrics tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, m := range metrics {
		var notes *string
		if m.Notes != "" {
			notes = &m.Notes
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quality_metrics (id, metric_date, metric_name, metric_value, target_value, category, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), m.MetricDate, m.MetricName, m.MetricValue,
			m.TargetValue, m.Category, notes,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert metric %s", m.MetricName)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit metrics tx")
}

func (s *SQLiteStore) ListMetrics(ctx context.Context, filter MetricFilter) ([]model.Metric, error) {
	query := `SELECT metric_date, metric_name, metric_value, target_value, category, notes
	          FROM quality_metrics WHERE true`
	args := []any{}

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if !filter.Since.IsZero() {
		query += ` AND metric_date >= ?`
		args = append(args, filter.Since)
	}
	query += ` ORDER BY metric_date DESC, metric_name LIMIT ?`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list metrics")
	}
	defer rows.Close()

	var metrics []model.Metric
	for rows.Next() {
		var m model.Metric
		var notes *string
		if err := rows.Scan(&m.MetricDate, &m.MetricName, &m.MetricValue,
			&m.TargetValue, &m.Category, &notes); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan metric")
		}
		if notes != nil {
			m.Notes = *notes
		}
		metrics = append(metrics, m)
	}
	return metrics, eris.Wrap(rows.Err(), "sqlite: list metrics iterate")
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", kind, id)
	}
	return nil
}
