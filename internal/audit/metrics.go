package audit

import (
	"fmt"
	"time"

	"github.com/sells-group/healthqa-cli/internal/config"
	"github.com/sells-group/healthqa-cli/internal/model"
	"github.com/sells-group/healthqa-cli/internal/quality"
)

// Aggregator computes point-in-time quality metrics over a snapshot.
type Aggregator struct {
	cfg config.MetricsConfig
}

// NewAggregator returns an Aggregator with the given targets and windows.
func NewAggregator(cfg config.MetricsConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// ComputeMetrics produces volume, completeness, and recency metrics for
// each data type, dated at evalTime. Recency counts records touched within
// the trailing window; providers carry no activity timestamp and get no
// recency metric.
func (a *Aggregator) ComputeMetrics(snap *model.Snapshot, evalTime time.Time) []model.Metric {
	var metrics []model.Metric

	windowStart := evalTime.AddDate(0, 0, -a.cfg.RecencyWindowDays)

	add := func(name string, value, target float64, category, notes string) {
		metrics = append(metrics, model.Metric{
			MetricDate:  evalTime,
			MetricName:  name,
			MetricValue: value,
			TargetValue: target,
			Category:    category,
			Notes:       notes,
		})
	}

	// Volume
	add("patient_records_total", float64(len(snap.Patients)), 0, model.MetricCategoryVolume, "")
	add("providers_total", float64(len(snap.Providers)), 0, model.MetricCategoryVolume, "")
	add("claims_total", float64(len(snap.Claims)), 0, model.MetricCategoryVolume, "")
	add("encounters_total", float64(len(snap.Encounters)), 0, model.MetricCategoryVolume, "")

	// Completeness (active records with all required fields populated)
	add("patient_records_completeness_pct", quality.PatientCompleteness(snap),
		a.cfg.CompletenessTarget, model.MetricCategoryCompleteness, "active records with all required fields")
	add("providers_completeness_pct", quality.ProviderCompleteness(snap),
		a.cfg.CompletenessTarget, model.MetricCategoryCompleteness, "active providers with all required fields")

	// Recency
	windowNote := fmt.Sprintf("records touched in trailing %d days", a.cfg.RecencyWindowDays)

	add("patient_records_recency_pct",
		recencyPct(len(snap.Patients), func(yield func(time.Time)) {
			for i := range snap.Patients {
				yield(snap.Patients[i].UpdatedAt)
			}
		}, windowStart, evalTime),
		a.cfg.RecencyTarget, model.MetricCategoryRecency, windowNote)

	add("claims_recency_pct",
		recencyPct(len(snap.Claims), func(yield func(time.Time)) {
			for i := range snap.Claims {
				if snap.Claims[i].SubmissionDate != nil {
					yield(*snap.Claims[i].SubmissionDate)
				}
			}
		}, windowStart, evalTime),
		a.cfg.RecencyTarget, model.MetricCategoryRecency, windowNote)

	add("encounters_recency_pct",
		recencyPct(len(snap.Encounters), func(yield func(time.Time)) {
			for i := range snap.Encounters {
				if snap.Encounters[i].EncounterDate != nil {
					yield(*snap.Encounters[i].EncounterDate)
				}
			}
		}, windowStart, evalTime),
		a.cfg.RecencyTarget, model.MetricCategoryRecency, windowNote)

	return metrics
}

// recencyPct returns the percentage of total records whose timestamp falls
// inside (windowStart, evalTime]. An empty data type scores 100.
func recencyPct(total int, each func(yield func(time.Time)), windowStart, evalTime time.Time) float64 {
	if total == 0 {
		return 100
	}
	recent := 0
	each(func(ts time.Time) {
		if ts.After(windowStart) && !ts.After(evalTime) {
			recent++
		}
	})
	return quality.Round2(float64(recent) / float64(total) * 100)
}
