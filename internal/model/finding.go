package model

import "time"

// Severity classifies the urgency of a finding.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// FindingStatus tracks the remediation lifecycle of an audit row.
// Findings are created OPEN and only move forward when a human or
// downstream process closes them; re-running checks never transitions
// existing rows.
type FindingStatus string

const (
	FindingStatusOpen         FindingStatus = "OPEN"
	FindingStatusInProgress   FindingStatus = "IN_PROGRESS"
	FindingStatusResolved     FindingStatus = "RESOLVED"
	FindingStatusAcknowledged FindingStatus = "ACKNOWLEDGED"
)

// CheckType identifies which quality check produced a finding.
type CheckType string

const (
	CheckCompleteness  CheckType = "completeness_check"
	CheckFormat        CheckType = "format_check"
	CheckDiscrepancy   CheckType = "discrepancy_check"
	CheckTemporal      CheckType = "temporal_check"
	CheckCredential    CheckType = "credential_check"
	CheckDuplicate     CheckType = "duplicate_check"
	CheckReferential   CheckType = "referential_check"
	CheckThreshold     CheckType = "threshold_check"
	CheckFreshness     CheckType = "freshness_check"
	CheckDocumentation CheckType = "documentation_check"
)

// IssueType classifies what kind of problem a finding describes.
type IssueType string

const (
	IssueIncompleteRecord        IssueType = "incomplete_record"
	IssueInvalidFormat           IssueType = "invalid_format"
	IssueAmountMismatch          IssueType = "amount_mismatch"
	IssuePaymentMismatch         IssueType = "payment_mismatch"
	IssueTemporalAnomaly         IssueType = "temporal_anomaly"
	IssueStalePendingClaim       IssueType = "stale_pending_claim"
	IssueExpiredLicense          IssueType = "expired_license"
	IssuePotentialDuplicate      IssueType = "potential_duplicate"
	IssueOrphanedRecord          IssueType = "orphaned_record"
	IssueUnusuallyHighAmount     IssueType = "unusually_high_amount"
	IssueHighClaimFrequency      IssueType = "high_claim_frequency"
	IssueStaleRecord             IssueType = "stale_record"
	IssueIncompleteDocumentation IssueType = "incomplete_documentation"
	IssueUnbilledEncounter       IssueType = "unbilled_encounter"
	IssueCheckExecutionError     IssueType = "check_execution_error"
)

// Finding is a single detected data-quality issue tied to a source record.
type Finding struct {
	ID              string         `json:"id,omitempty"`
	CheckTimestamp  time.Time      `json:"check_timestamp"`
	CheckType       CheckType      `json:"check_type"`
	TableName       string         `json:"table_name"`
	RecordID        string         `json:"record_id"`
	IssueType       IssueType      `json:"issue_type"`
	Description     string         `json:"issue_description"`
	Severity        Severity       `json:"severity"`
	Status          FindingStatus  `json:"status"`
	Details         map[string]any `json:"details,omitempty"`
	AssignedTo      *string        `json:"assigned_to,omitempty"`
	ResolutionNotes *string        `json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
}

// FindingKey identifies the issue a finding describes, independent of the
// run that produced it. Used for open-finding deduplication.
type FindingKey struct {
	CheckType CheckType `json:"check_type"`
	TableName string    `json:"table_name"`
	RecordID  string    `json:"record_id"`
	IssueType IssueType `json:"issue_type"`
}

// Key returns the dedup key for a finding.
func (f Finding) Key() FindingKey {
	return FindingKey{
		CheckType: f.CheckType,
		TableName: f.TableName,
		RecordID:  f.RecordID,
		IssueType: f.IssueType,
	}
}

// RunState represents the persistence state of a check run.
type RunState string

const (
	RunStateRunning  RunState = "running"
	RunStateComplete RunState = "complete"
	RunStateFailed   RunState = "failed"
)

// CheckRun is one execution of the full check battery. Findings are
// persisted under a run so a run is the unit of atomic persistence.
type CheckRun struct {
	ID             string      `json:"id"`
	Status         RunState    `json:"status"`
	EvaluationTime time.Time   `json:"evaluation_time"`
	StartedAt      time.Time   `json:"started_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	Summary        *RunSummary `json:"summary,omitempty"`
}

// RunSummary aggregates the outcome of a full check run.
type RunSummary struct {
	RunID          string            `json:"run_id"`
	EvaluationTime time.Time         `json:"evaluation_time"`
	ChecksRun      int               `json:"checks_run"`
	TotalFindings  int               `json:"total_findings"`
	BySeverity     map[Severity]int  `json:"by_severity"`
	ByIssueType    map[IssueType]int `json:"by_issue_type"`
	Suppressed     int               `json:"suppressed,omitempty"`
	Status         string            `json:"status"`
}

// Summarize builds a RunSummary over a finding set. Status is FAIL when
// any finding was produced, PASS otherwise.
func Summarize(runID string, evalTime time.Time, checksRun int, findings []Finding, suppressed int) *RunSummary {
	s := &RunSummary{
		RunID:          runID,
		EvaluationTime: evalTime,
		ChecksRun:      checksRun,
		TotalFindings:  len(findings),
		BySeverity:     make(map[Severity]int),
		ByIssueType:    make(map[IssueType]int),
		Suppressed:     suppressed,
		Status:         "PASS",
	}
	for _, f := range findings {
		s.BySeverity[f.Severity]++
		s.ByIssueType[f.IssueType]++
	}
	if s.TotalFindings > 0 {
		s.Status = "FAIL"
	}
	return s
}
