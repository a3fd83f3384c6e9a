package quality

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/healthqa-cli/internal/model"
)

func TestRunAll_EmptySnapshot(t *testing.T) {
	e := NewEvaluator(testCheckConfig())

	findings, checksRun := e.RunAll(context.Background(), emptySnapshot(), testEvalTime)
	assert.Empty(t, findings)
	assert.Equal(t, 10, checksRun)
}

func TestRunAll_FailingCheckDoesNotAbortSiblings(t *testing.T) {
	e := NewEvaluator(testCheckConfig())
	e.checks = []Check{
		{model.CheckCompleteness, e.checkCompleteness},
		{model.CheckFormat, func(snap *model.Snapshot, evalTime time.Time) ([]model.Finding, error) {
			return nil, eris.New("source table unreadable")
		}},
		{model.CheckCredential, e.checkCredentials},
	}

	p := completePatient("P1")
	p.Name = nil
	snap := snapshotOf([]model.PatientRecord{p}, nil, nil, nil, nil)

	findings, checksRun := e.RunAll(context.Background(), snap, testEvalTime)
	assert.Equal(t, 3, checksRun)
	require.Len(t, findings, 2)

	assert.Equal(t, model.IssueIncompleteRecord, findings[0].IssueType)

	execErr := findings[1]
	assert.Equal(t, model.IssueCheckExecutionError, execErr.IssueType)
	assert.Equal(t, model.CheckFormat, execErr.CheckType)
	assert.Equal(t, model.SeverityHigh, execErr.Severity)
	assert.Equal(t, "n/a", execErr.TableName)
	assert.Equal(t, "n/a", execErr.RecordID)
	assert.Contains(t, execErr.Description, "source table unreadable")
}

func TestRunAll_PanicConvertedToFinding(t *testing.T) {
	e := NewEvaluator(testCheckConfig())
	e.checks = []Check{
		{model.CheckDiscrepancy, func(snap *model.Snapshot, evalTime time.Time) ([]model.Finding, error) {
			panic("nil line item")
		}},
	}

	findings, checksRun := e.RunAll(context.Background(), emptySnapshot(), testEvalTime)
	assert.Equal(t, 1, checksRun)
	require.Len(t, findings, 1)
	assert.Equal(t, model.IssueCheckExecutionError, findings[0].IssueType)
	assert.Contains(t, findings[0].Description, "panic: nil line item")
}

func TestRunAll_CancelledContextStopsEarly(t *testing.T) {
	e := NewEvaluator(testCheckConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	findings, checksRun := e.RunAll(ctx, emptySnapshot(), testEvalTime)
	assert.Empty(t, findings)
	assert.Equal(t, 0, checksRun)
}

func TestRunAll_ParallelMatchesSequential(t *testing.T) {
	snap := mixedSnapshot()

	seqCfg := testCheckConfig()
	seqFindings, seqRun := NewEvaluator(seqCfg).RunAll(context.Background(), snap, testEvalTime)

	parCfg := testCheckConfig()
	parCfg.Parallelism = 4
	parFindings, parRun := NewEvaluator(parCfg).RunAll(context.Background(), snap, testEvalTime)

	assert.Equal(t, seqRun, parRun)
	assert.Equal(t, seqFindings, parFindings)
}

func TestRunAll_Idempotent(t *testing.T) {
	e := NewEvaluator(testCheckConfig())
	snap := mixedSnapshot()

	first, _ := e.RunAll(context.Background(), snap, testEvalTime)
	second, _ := e.RunAll(context.Background(), snap, testEvalTime)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

// mixedSnapshot exercises several checks at once: an incomplete patient, a
// stale patient, an expired license, and an orphaned claim.
func mixedSnapshot() *model.Snapshot {
	incomplete := completePatient("P1")
	incomplete.InsuranceID = nil

	stale := completePatient("P2")
	stale.UpdatedAt = daysAgo(900)

	expired := completeProvider("PRV-1")
	expired.LicenseExpiryDate = timePtr(daysAgo(30))

	orphan := model.Claim{
		ClaimID:          "C1",
		PatientID:        "P-MISSING",
		ProviderID:       "PRV-1",
		ClaimTotalAmount: decimal.NewFromInt(100),
		Status:           model.ClaimStatusSubmitted,
	}

	return snapshotOf(
		[]model.PatientRecord{incomplete, stale},
		[]model.Provider{expired},
		[]model.Claim{orphan}, nil, nil,
	)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 4.76, Round2(4.7619))
	assert.Equal(t, 66.67, Round2(66.666666))
	assert.Equal(t, 0.0, Round2(0))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 10, daysBetween(daysAgo(10), testEvalTime))
	assert.Equal(t, 0, daysBetween(testEvalTime, testEvalTime))
}
