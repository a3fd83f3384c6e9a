package quality

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sells-group/healthqa-cli/internal/model"
)

var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[A-Za-z]{2,}$`)

const maxPatientAgeYears = 120

// wholeYears returns the number of complete years between from and to.
func wholeYears(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}

// digitsOnly strips every non-digit rune from s.
func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// checkFormat validates date-of-birth plausibility, phone number shape,
// and email shape on patient and provider records.
func (e *Evaluator) checkFormat(snap *model.Snapshot, evalTime time.Time) ([]model.Finding, error) {
	var findings []model.Finding

	flag := func(table, recordID, field, desc string, value any) {
		findings = append(findings, newFinding(evalTime, model.CheckFormat,
			table, recordID, model.IssueInvalidFormat, model.SeverityMedium,
			desc, map[string]any{"field": field, "value": value},
		))
	}

	for i := range snap.Patients {
		p := &snap.Patients[i]

		if p.DateOfBirth != nil {
			dob := *p.DateOfBirth
			switch {
			case dob.After(evalTime):
				flag("patient_records", p.PatientID, "date_of_birth",
					fmt.Sprintf("date_of_birth %s is in the future", dob.Format("2006-01-02")), dob.Format("2006-01-02"))
			case dob.Year() < 1900:
				flag("patient_records", p.PatientID, "date_of_birth",
					fmt.Sprintf("date_of_birth %s is before 1900", dob.Format("2006-01-02")), dob.Format("2006-01-02"))
			case wholeYears(dob, evalTime) > maxPatientAgeYears:
				flag("patient_records", p.PatientID, "date_of_birth",
					fmt.Sprintf("implied age %d exceeds %d years", wholeYears(dob, evalTime), maxPatientAgeYears), dob.Format("2006-01-02"))
			}
		}

		if p.ContactPhone != nil {
			if digits := digitsOnly(*p.ContactPhone); len(digits) != 10 {
				flag("patient_records", p.PatientID, "contact_phone",
					fmt.Sprintf("phone number has %d digits, expected 10", len(digits)), *p.ContactPhone)
			}
		}

		if p.ContactEmail != nil && !emailRE.MatchString(*p.ContactEmail) {
			flag("patient_records", p.PatientID, "contact_email",
				"email address is not a valid local@domain.tld", *p.ContactEmail)
		}
	}

	for i := range snap.Providers {
		p := &snap.Providers[i]
		if p.ContactEmail != nil && !emailRE.MatchString(*p.ContactEmail) {
			flag("providers", p.ProviderID, "contact_email",
				"email address is not a valid local@domain.tld", *p.ContactEmail)
		}
	}

	return findings, nil
}
