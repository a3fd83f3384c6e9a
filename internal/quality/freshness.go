package quality

import (
	"fmt"
	"time"

	"github.com/sells-group/healthqa-cli/internal/model"
)

// checkFreshness flags active patient records that have not been updated
// within the stale-record window.
func (e *Evaluator) checkFreshness(snap *model.Snapshot, evalTime time.Time) ([]model.Finding, error) {
	var findings []model.Finding

	cutoff := evalTime.AddDate(0, 0, -e.cfg.StaleRecordDays)
	for i := range snap.Patients {
		p := &snap.Patients[i]
		if !p.IsActive || !p.UpdatedAt.Before(cutoff) {
			continue
		}
		daysStale := daysBetween(p.UpdatedAt, evalTime)
		findings = append(findings, newFinding(evalTime, model.CheckFreshness,
			"patient_records", p.PatientID, model.IssueStaleRecord, model.SeverityLow,
			fmt.Sprintf("Record not updated in %d days", daysStale),
			map[string]any{"days_stale": daysStale},
		))
	}

	return findings, nil
}
