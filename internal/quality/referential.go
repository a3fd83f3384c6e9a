package quality

import (
	"fmt"
	"time"

	"github.com/sells-group/healthqa-cli/internal/model"
)

// checkReferential flags claims and encounters whose patient or provider
// foreign keys do not resolve to an existing record.
func (e *Evaluator) checkReferential(snap *model.Snapshot, evalTime time.Time) ([]model.Finding, error) {
	var findings []model.Finding

	orphan := func(table, recordID, fkField, fkValue string) {
		findings = append(findings, newFinding(evalTime, model.CheckReferential,
			table, recordID, model.IssueOrphanedRecord, model.SeverityCritical,
			fmt.Sprintf("%s %q does not resolve to an existing record", fkField, fkValue),
			map[string]any{"foreign_key": fkField, "value": fkValue},
		))
	}

	for i := range snap.Claims {
		c := &snap.Claims[i]
		if _, ok := snap.PatientByID[c.PatientID]; !ok {
			orphan("claims", c.ClaimID, "patient_id", c.PatientID)
		}
		if _, ok := snap.ProviderByID[c.ProviderID]; !ok {
			orphan("claims", c.ClaimID, "provider_id", c.ProviderID)
		}
	}

	for i := range snap.Encounters {
		en := &snap.Encounters[i]
		if _, ok := snap.PatientByID[en.PatientID]; !ok {
			orphan("encounters", en.EncounterID, "patient_id", en.PatientID)
		}
		if _, ok := snap.ProviderByID[en.ProviderID]; !ok {
			orphan("encounters", en.EncounterID, "provider_id", en.ProviderID)
		}
	}

	return findings, nil
}
