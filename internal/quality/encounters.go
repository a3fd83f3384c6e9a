package quality

import (
	"fmt"
	"time"

	"github.com/sells-group/healthqa-cli/internal/model"
)

// checkDocumentation flags encounters with outstanding documentation past
// the grace period, and documented encounters that were never billed.
func (e *Evaluator) checkDocumentation(snap *model.Snapshot, evalTime time.Time) ([]model.Finding, error) {
	var findings []model.Finding

	docCutoff := evalTime.AddDate(0, 0, -e.cfg.DocumentationGraceDays)
	billCutoff := evalTime.AddDate(0, 0, -e.cfg.BillingGraceDays)

	for i := range snap.Encounters {
		en := &snap.Encounters[i]
		if en.EncounterDate == nil {
			continue
		}

		daysOutstanding := daysBetween(*en.EncounterDate, evalTime)

		if !en.DocumentationComplete && en.EncounterDate.Before(docCutoff) {
			findings = append(findings, newFinding(evalTime, model.CheckDocumentation,
				"encounters", en.EncounterID, model.IssueIncompleteDocumentation, model.SeverityMedium,
				fmt.Sprintf("Documentation incomplete %d days after encounter", daysOutstanding),
				map[string]any{"days_outstanding": daysOutstanding},
			))
		}

		if en.DocumentationComplete && !en.BillingSubmitted && en.EncounterDate.Before(billCutoff) {
			findings = append(findings, newFinding(evalTime, model.CheckDocumentation,
				"encounters", en.EncounterID, model.IssueUnbilledEncounter, model.SeverityHigh,
				fmt.Sprintf("Documented encounter unbilled %d days after encounter", daysOutstanding),
				map[string]any{"days_outstanding": daysOutstanding},
			))
		}
	}

	return findings, nil
}
