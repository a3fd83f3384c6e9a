package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/healthqa-cli/internal/model"
)

func TestCheckDocumentation_IncompleteDocs(t *testing.T) {
	e := NewEvaluator(testCheckConfig())

	en := model.Encounter{
		EncounterID:   "E1",
		PatientID:     "P1",
		ProviderID:    "PRV-1",
		EncounterDate: timePtr(daysAgo(10)),
	}
	snap := snapshotOf(nil, nil, nil, nil, []model.Encounter{en})

	findings, err := e.checkDocumentation(snap, testEvalTime)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, model.IssueIncompleteDocumentation, f.IssueType)
	assert.Equal(t, model.SeverityMedium, f.Severity)
	assert.Equal(t, 10, f.Details["days_outstanding"])
}

func TestCheckDocumentation_RecentEncounterInGracePeriod(t *testing.T) {
	e := NewEvaluator(testCheckConfig())

	en := model.Encounter{
		EncounterID:   "E1",
		PatientID:     "P1",
		ProviderID:    "PRV-1",
		EncounterDate: timePtr(daysAgo(3)),
	}
	snap := snapshotOf(nil, nil, nil, nil, []model.Encounter{en})

	findings, err := e.checkDocumentation(snap, testEvalTime)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestCheckDocumentation_UnbilledEncounter(t *testing.T) {
	e := NewEvaluator(testCheckConfig())

	en := model.Encounter{
		EncounterID:           "E1",
		PatientID:             "P1",
		ProviderID:            "PRV-1",
		EncounterDate:         timePtr(daysAgo(20)),
		DocumentationComplete: true,
	}
	snap := snapshotOf(nil, nil, nil, nil, []model.Encounter{en})

	findings, err := e.checkDocumentation(snap, testEvalTime)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, model.IssueUnbilledEncounter, findings[0].IssueType)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
}

func TestCheckDocumentation_DocumentedAndBilled(t *testing.T) {
	e := NewEvaluator(testCheckConfig())

	en := model.Encounter{
		EncounterID:           "E1",
		PatientID:             "P1",
		ProviderID:            "PRV-1",
		EncounterDate:         timePtr(daysAgo(60)),
		DocumentationComplete: true,
		BillingSubmitted:      true,
	}
	snap := snapshotOf(nil, nil, nil, nil, []model.Encounter{en})

	findings, err := e.checkDocumentation(snap, testEvalTime)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestCheckDocumentation_NilDateSkipped(t *testing.T) {
	e := NewEvaluator(testCheckConfig())

	en := model.Encounter{EncounterID: "E1", PatientID: "P1", ProviderID: "PRV-1"}
	snap := snapshotOf(nil, nil, nil, nil, []model.Encounter{en})

	findings, err := e.checkDocumentation(snap, testEvalTime)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
