package quality

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/healthqa-cli/internal/model"
)

// patientMissingFields lists the required demographic/contact fields a
// patient record is missing. Phone and email are interchangeable; both
// absent counts as a single missing contact_info field.
func patientMissingFields(p *model.PatientRecord) []string {
	var missing []string
	if p.Name == nil {
		missing = append(missing, "name")
	}
	if p.DateOfBirth == nil {
		missing = append(missing, "date_of_birth")
	}
	if p.InsuranceID == nil {
		missing = append(missing, "insurance_id")
	}
	if p.PrimaryProvider == nil {
		missing = append(missing, "primary_provider")
	}
	if p.ContactPhone == nil && p.ContactEmail == nil {
		missing = append(missing, "contact_info")
	}
	return missing
}

// providerMissingFields lists the required identifying fields a provider
// record is missing.
func providerMissingFields(p *model.Provider) []string {
	var missing []string
	if p.NPINumber == nil {
		missing = append(missing, "npi_number")
	}
	if p.LicenseNumber == nil {
		missing = append(missing, "license_number")
	}
	if p.Specialty == nil {
		missing = append(missing, "specialty")
	}
	if p.ContactEmail == nil {
		missing = append(missing, "contact_email")
	}
	return missing
}

// checkCompleteness flags active patients and providers with missing
// required fields. Severity escalates to HIGH when a record is missing
// more than two fields.
func (e *Evaluator) checkCompleteness(snap *model.Snapshot, evalTime time.Time) ([]model.Finding, error) {
	var findings []model.Finding

	for i := range snap.Patients {
		p := &snap.Patients[i]
		if !p.IsActive {
			continue
		}
		missing := patientMissingFields(p)
		if len(missing) == 0 {
			continue
		}
		severity := model.SeverityMedium
		if len(missing) > 2 {
			severity = model.SeverityHigh
		}
		findings = append(findings, newFinding(evalTime, model.CheckCompleteness,
			"patient_records", p.PatientID, model.IssueIncompleteRecord, severity,
			fmt.Sprintf("Missing fields: %s", strings.Join(missing, ", ")),
			map[string]any{"missing_fields": missing},
		))
	}

	for i := range snap.Providers {
		p := &snap.Providers[i]
		if !p.IsActive {
			continue
		}
		missing := providerMissingFields(p)
		if len(missing) == 0 {
			continue
		}
		severity := model.SeverityMedium
		if len(missing) > 2 {
			severity = model.SeverityHigh
		}
		findings = append(findings, newFinding(evalTime, model.CheckCompleteness,
			"providers", p.ProviderID, model.IssueIncompleteRecord, severity,
			fmt.Sprintf("Missing fields: %s", strings.Join(missing, ", ")),
			map[string]any{"missing_fields": missing},
		))
	}

	return findings, nil
}

// PatientCompleteness returns the percentage of active patient records
// with all required fields present, rounded to two decimals. An empty
// active set is vacuously complete.
func PatientCompleteness(snap *model.Snapshot) float64 {
	total, complete := 0, 0
	for i := range snap.Patients {
		p := &snap.Patients[i]
		if !p.IsActive {
			continue
		}
		total++
		if len(patientMissingFields(p)) == 0 {
			complete++
		}
	}
	if total == 0 {
		return 100
	}
	return Round2(float64(complete) / float64(total) * 100)
}

// ProviderCompleteness returns the percentage of active providers with
// all required fields present, rounded to two decimals.
func ProviderCompleteness(snap *model.Snapshot) float64 {
	total, complete := 0, 0
	for i := range snap.Providers {
		p := &snap.Providers[i]
		if !p.IsActive {
			continue
		}
		total++
		if len(providerMissingFields(p)) == 0 {
			complete++
		}
	}
	if total == 0 {
		return 100
	}
	return Round2(float64(complete) / float64(total) * 100)
}
