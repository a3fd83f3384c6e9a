package quality

import (
	"fmt"
	"time"

	"github.com/sells-group/healthqa-cli/internal/model"
)

// checkCredentials flags active providers whose license has expired as of
// the evaluation date.
func (e *Evaluator) checkCredentials(snap *model.Snapshot, evalTime time.Time) ([]model.Finding, error) {
	var findings []model.Finding

	for i := range snap.Providers {
		p := &snap.Providers[i]
		if !p.IsActive || p.LicenseExpiryDate == nil {
			continue
		}
		if !p.LicenseExpiryDate.Before(evalTime) {
			continue
		}
		daysExpired := daysBetween(*p.LicenseExpiryDate, evalTime)
		findings = append(findings, newFinding(evalTime, model.CheckCredential,
			"providers", p.ProviderID, model.IssueExpiredLicense, model.SeverityCritical,
			fmt.Sprintf("License expired %d days ago", daysExpired),
			map[string]any{
				"days_expired":        daysExpired,
				"license_expiry_date": p.LicenseExpiryDate.Format("2006-01-02"),
			},
		))
	}

	return findings, nil
}
