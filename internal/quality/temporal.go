package quality

import (
	"fmt"
	"time"

	"github.com/sells-group/healthqa-cli/internal/model"
)

// checkTemporal flags claims whose lifecycle dates are out of order and
// claims that have been sitting in SUBMITTED/PENDING past the stale
// window.
func (e *Evaluator) checkTemporal(snap *model.Snapshot, evalTime time.Time) ([]model.Finding, error) {
	var findings []model.Finding

	for i := range snap.Claims {
		c := &snap.Claims[i]

		if c.SubmissionDate != nil && c.ServiceDate != nil && c.SubmissionDate.Before(*c.ServiceDate) {
			findings = append(findings, newFinding(evalTime, model.CheckTemporal,
				"claims", c.ClaimID, model.IssueTemporalAnomaly, model.SeverityHigh,
				"Submission before service",
				map[string]any{
					"service_date":    c.ServiceDate.Format("2006-01-02"),
					"submission_date": c.SubmissionDate.Format("2006-01-02"),
				},
			))
		}

		if c.ProcessingDate != nil && c.SubmissionDate != nil && c.ProcessingDate.Before(*c.SubmissionDate) {
			findings = append(findings, newFinding(evalTime, model.CheckTemporal,
				"claims", c.ClaimID, model.IssueTemporalAnomaly, model.SeverityHigh,
				"Processing before submission",
				map[string]any{
					"submission_date": c.SubmissionDate.Format("2006-01-02"),
					"processing_date": c.ProcessingDate.Format("2006-01-02"),
				},
			))
		}

		if (c.Status == model.ClaimStatusSubmitted || c.Status == model.ClaimStatusPending) && c.SubmissionDate != nil {
			daysPending := daysBetween(*c.SubmissionDate, evalTime)
			if daysPending > e.cfg.StaleClaimDays {
				findings = append(findings, newFinding(evalTime, model.CheckTemporal,
					"claims", c.ClaimID, model.IssueStalePendingClaim, model.SeverityMedium,
					fmt.Sprintf("Claim in status %s for %d days", c.Status, daysPending),
					map[string]any{"days_pending": daysPending, "status": string(c.Status)},
				))
			}
		}
	}

	return findings, nil
}
