package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/healthqa-cli/internal/config"
	"github.com/sells-group/healthqa-cli/internal/model"
)

func testMetricsConfig() config.MetricsConfig {
	return config.MetricsConfig{
		RecencyWindowDays:  30,
		CompletenessTarget: 95,
		RecencyTarget:      90,
	}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func metricByName(t *testing.T, metrics []model.Metric, name string) model.Metric {
	t.Helper()
	for _, m := range metrics {
		if m.MetricName == name {
			return m
		}
	}
	t.Fatalf("metric %s not found", name)
	return model.Metric{}
}

func testPatient(id string, updatedAt time.Time) model.PatientRecord {
	return model.PatientRecord{
		PatientID:       id,
		Name:            strPtr("Jane Doe"),
		DateOfBirth:     timePtr(time.Date(1980, 3, 15, 0, 0, 0, 0, time.UTC)),
		InsuranceID:     strPtr("INS-1001"),
		PrimaryProvider: strPtr("PRV-1"),
		ContactPhone:    strPtr("555-123-4567"),
		IsActive:        true,
		CreatedAt:       updatedAt,
		UpdatedAt:       updatedAt,
	}
}

func TestComputeMetrics_VolumeCompletenessRecency(t *testing.T) {
	agg := NewAggregator(testMetricsConfig())

	recent := testPatient("P1", testEvalTime.AddDate(0, 0, -5))
	old := testPatient("P2", testEvalTime.AddDate(0, 0, -90))

	claims := []model.Claim{
		{ClaimID: "C1", PatientID: "P1", ProviderID: "PRV-1", SubmissionDate: timePtr(testEvalTime.AddDate(0, 0, -10)), Status: model.ClaimStatusSubmitted},
		{ClaimID: "C2", PatientID: "P1", ProviderID: "PRV-1", SubmissionDate: timePtr(testEvalTime.AddDate(0, 0, -60)), Status: model.ClaimStatusPaid},
		{ClaimID: "C3", PatientID: "P2", ProviderID: "PRV-1", Status: model.ClaimStatusSubmitted},
	}

	snap := model.NewSnapshot([]model.PatientRecord{recent, old}, nil, claims, nil, nil)

	metrics := agg.ComputeMetrics(snap, testEvalTime)

	volume := metricByName(t, metrics, "patient_records_total")
	assert.Equal(t, 2.0, volume.MetricValue)
	assert.Equal(t, model.MetricCategoryVolume, volume.Category)
	assert.Equal(t, testEvalTime, volume.MetricDate)

	assert.Equal(t, 3.0, metricByName(t, metrics, "claims_total").MetricValue)

	completeness := metricByName(t, metrics, "patient_records_completeness_pct")
	assert.Equal(t, 100.0, completeness.MetricValue)
	assert.Equal(t, 95.0, completeness.TargetValue)
	assert.Equal(t, model.MetricCategoryCompleteness, completeness.Category)

	recency := metricByName(t, metrics, "patient_records_recency_pct")
	assert.Equal(t, 50.0, recency.MetricValue)
	assert.Equal(t, 90.0, recency.TargetValue)
	assert.Equal(t, model.MetricCategoryRecency, recency.Category)

	// One of three claims submitted inside the window; the claim with no
	// submission date counts against recency.
	assert.Equal(t, 33.33, metricByName(t, metrics, "claims_recency_pct").MetricValue)
}

func TestComputeMetrics_EmptySnapshot(t *testing.T) {
	agg := NewAggregator(testMetricsConfig())

	snap := model.NewSnapshot(nil, nil, nil, nil, nil)
	metrics := agg.ComputeMetrics(snap, testEvalTime)

	assert.Equal(t, 0.0, metricByName(t, metrics, "patient_records_total").MetricValue)
	assert.Equal(t, 100.0, metricByName(t, metrics, "patient_records_completeness_pct").MetricValue)
	assert.Equal(t, 100.0, metricByName(t, metrics, "encounters_recency_pct").MetricValue)
}

func TestComputeMetrics_ProvidersHaveNoRecency(t *testing.T) {
	agg := NewAggregator(testMetricsConfig())

	snap := model.NewSnapshot(nil, nil, nil, nil, nil)
	for _, m := range agg.ComputeMetrics(snap, testEvalTime) {
		require.NotEqual(t, "providers_recency_pct", m.MetricName)
	}
}
