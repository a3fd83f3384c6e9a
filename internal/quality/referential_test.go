package quality

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/healthqa-cli/internal/model"
)

func TestCheckReferential_OrphanedClaim(t *testing.T) {
	e := NewEvaluator(testCheckConfig())

	c := model.Claim{
		ClaimID:          "C1",
		PatientID:        "P1",
		ProviderID:       "PRV-MISSING",
		ClaimTotalAmount: decimal.NewFromInt(100),
		Status:           model.ClaimStatusSubmitted,
	}
	snap := snapshotOf([]model.PatientRecord{completePatient("P1")}, nil, []model.Claim{c}, nil, nil)

	findings, err := e.checkReferential(snap, testEvalTime)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, model.IssueOrphanedRecord, f.IssueType)
	assert.Equal(t, model.SeverityCritical, f.Severity)
	assert.Equal(t, "claims", f.TableName)
	assert.Equal(t, "C1", f.RecordID)
	assert.Equal(t, "provider_id", f.Details["foreign_key"])
	assert.Equal(t, "PRV-MISSING", f.Details["value"])
}

func TestCheckReferential_EncounterBothKeysOrphaned(t *testing.T) {
	e := NewEvaluator(testCheckConfig())

	en := model.Encounter{
		EncounterID: "E1",
		PatientID:   "P-MISSING",
		ProviderID:  "PRV-MISSING",
	}
	snap := snapshotOf(nil, nil, nil, nil, []model.Encounter{en})

	findings, err := e.checkReferential(snap, testEvalTime)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "patient_id", findings[0].Details["foreign_key"])
	assert.Equal(t, "provider_id", findings[1].Details["foreign_key"])
}

func TestCheckReferential_ValidReferences(t *testing.T) {
	e := NewEvaluator(testCheckConfig())

	c := model.Claim{
		ClaimID:          "C1",
		PatientID:        "P1",
		ProviderID:       "PRV-1",
		ClaimTotalAmount: decimal.NewFromInt(100),
		Status:           model.ClaimStatusSubmitted,
	}
	en := model.Encounter{EncounterID: "E1", PatientID: "P1", ProviderID: "PRV-1"}

	snap := snapshotOf(
		[]model.PatientRecord{completePatient("P1")},
		[]model.Provider{completeProvider("PRV-1")},
		[]model.Claim{c}, nil, []model.Encounter{en},
	)

	findings, err := e.checkReferential(snap, testEvalTime)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestCheckReferential_InactiveRecordStillResolves(t *testing.T) {
	e := NewEvaluator(testCheckConfig())

	p := completePatient("P1")
	p.IsActive = false
	c := model.Claim{
		ClaimID:          "C1",
		PatientID:        "P1",
		ProviderID:       "PRV-1",
		ClaimTotalAmount: decimal.NewFromInt(100),
		Status:           model.ClaimStatusSubmitted,
	}

	snap := snapshotOf([]model.PatientRecord{p}, []model.Provider{completeProvider("PRV-1")}, []model.Claim{c}, nil, nil)

	findings, err := e.checkReferential(snap, testEvalTime)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
