package quality

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sells-group/healthqa-cli/internal/model"
)

var (
	amountTolerance     = decimal.NewFromFloat(0.01)
	criticalDiscrepancy = decimal.NewFromInt(1000)
)

// checkClaimAmounts verifies that every claim total matches the sum of
// its line items, and that PROCESSED/PAID claim totals match the payment
// distribution, both within a 0.01 tolerance.
func (e *Evaluator) checkClaimAmounts(snap *model.Snapshot, evalTime time.Time) ([]model.Finding, error) {
	var findings []model.Finding

	for i := range snap.Claims {
		c := &snap.Claims[i]

		calculated := decimal.Zero
		for _, li := range snap.LineItemsByClaim[c.ClaimID] {
			calculated = calculated.Add(li.LineItemAmount)
		}

		discrepancy := c.ClaimTotalAmount.Sub(calculated).Abs()
		if discrepancy.GreaterThan(amountTolerance) {
			severity := model.SeverityHigh
			if discrepancy.GreaterThan(criticalDiscrepancy) {
				severity = model.SeverityCritical
			}
			details := map[string]any{
				"claim_total_amount": c.ClaimTotalAmount.InexactFloat64(),
				"calculated_total":   calculated.InexactFloat64(),
				"discrepancy_amount": discrepancy.InexactFloat64(),
				"line_item_count":    len(snap.LineItemsByClaim[c.ClaimID]),
			}
			// Percentage is undefined for a zero claim total.
			if !c.ClaimTotalAmount.IsZero() {
				pct := discrepancy.Div(c.ClaimTotalAmount).Mul(decimal.NewFromInt(100))
				details["discrepancy_percentage"] = Round2(pct.InexactFloat64())
			}
			findings = append(findings, newFinding(evalTime, model.CheckDiscrepancy,
				"claims", c.ClaimID, model.IssueAmountMismatch, severity,
				fmt.Sprintf("Claim total: $%s, Line items sum: $%s, Discrepancy: $%s",
					c.ClaimTotalAmount.StringFixed(2), calculated.StringFixed(2), discrepancy.StringFixed(2)),
				details,
			))
		}

		if c.Status == model.ClaimStatusProcessed || c.Status == model.ClaimStatusPaid {
			distributed := model.AmountOrZero(c.InsurancePaidAmount).
				Add(model.AmountOrZero(c.PatientResponsibility)).
				Add(model.AmountOrZero(c.AdjustmentAmount))
			paymentGap := c.ClaimTotalAmount.Sub(distributed).Abs()
			if paymentGap.GreaterThan(amountTolerance) {
				findings = append(findings, newFinding(evalTime, model.CheckDiscrepancy,
					"claims", c.ClaimID, model.IssuePaymentMismatch, model.SeverityHigh,
					fmt.Sprintf("Claim total: $%s, Payment distribution: $%s, Gap: $%s",
						c.ClaimTotalAmount.StringFixed(2), distributed.StringFixed(2), paymentGap.StringFixed(2)),
					map[string]any{
						"claim_total_amount":     c.ClaimTotalAmount.InexactFloat64(),
						"insurance_paid_amount":  model.AmountOrZero(c.InsurancePaidAmount).InexactFloat64(),
						"patient_responsibility": model.AmountOrZero(c.PatientResponsibility).InexactFloat64(),
						"adjustment_amount":      model.AmountOrZero(c.AdjustmentAmount).InexactFloat64(),
						"payment_gap":            paymentGap.InexactFloat64(),
					},
				))
			}
		}
	}

	return findings, nil
}
