package quality

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sells-group/healthqa-cli/internal/model"
)

// checkThresholds flags unusually high claim amounts and patients with an
// abnormal claim frequency over the trailing window.
func (e *Evaluator) checkThresholds(snap *model.Snapshot, evalTime time.Time) ([]model.Finding, error) {
	var findings []model.Finding

	highAmount := decimal.NewFromFloat(e.cfg.HighAmountThreshold)
	for i := range snap.Claims {
		c := &snap.Claims[i]
		if c.ClaimTotalAmount.GreaterThan(highAmount) {
			findings = append(findings, newFinding(evalTime, model.CheckThreshold,
				"claims", c.ClaimID, model.IssueUnusuallyHighAmount, model.SeverityMedium,
				fmt.Sprintf("Claim total $%s exceeds $%s threshold",
					c.ClaimTotalAmount.StringFixed(2), highAmount.StringFixed(2)),
				map[string]any{
					"claim_total_amount": c.ClaimTotalAmount.InexactFloat64(),
					"threshold":          e.cfg.HighAmountThreshold,
				},
			))
		}
	}

	windowStart := evalTime.AddDate(0, 0, -e.cfg.HighFrequencyWindowDays)
	claimCounts := make(map[string]int)
	for i := range snap.Claims {
		c := &snap.Claims[i]
		if c.ServiceDate == nil {
			continue
		}
		if c.ServiceDate.After(windowStart) && !c.ServiceDate.After(evalTime) {
			claimCounts[c.PatientID]++
		}
	}

	patientIDs := make([]string, 0, len(claimCounts))
	for id := range claimCounts {
		patientIDs = append(patientIDs, id)
	}
	sort.Strings(patientIDs)

	for _, id := range patientIDs {
		count := claimCounts[id]
		if count <= e.cfg.HighFrequencyCount {
			continue
		}
		findings = append(findings, newFinding(evalTime, model.CheckThreshold,
			"patient_records", id, model.IssueHighClaimFrequency, model.SeverityHigh,
			fmt.Sprintf("%d claims in the trailing %d days", count, e.cfg.HighFrequencyWindowDays),
			map[string]any{
				"claim_count": count,
				"window_days": e.cfg.HighFrequencyWindowDays,
			},
		))
	}

	return findings, nil
}
