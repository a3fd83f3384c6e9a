package quality

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/sells-group/healthqa-cli/internal/model"
)

// nameFolder case-folds patient names so "Jane Doe" and "JANE DOE" group
// together.
var nameFolder = cases.Fold()

type patientDupKey struct {
	name string
	dob  string
}

type claimDupKey struct {
	patientID   string
	providerID  string
	serviceDate string
	total       string
}

// checkDuplicates groups active patients by (folded name, date of birth)
// and claims by (patient, provider, service date, total amount). Member
// lists are sorted so grouping is independent of input order.
func (e *Evaluator) checkDuplicates(snap *model.Snapshot, evalTime time.Time) ([]model.Finding, error) {
	var findings []model.Finding

	patientGroups := make(map[patientDupKey][]string)
	for i := range snap.Patients {
		p := &snap.Patients[i]
		if !p.IsActive || p.Name == nil || p.DateOfBirth == nil {
			continue
		}
		key := patientDupKey{
			name: nameFolder.String(strings.TrimSpace(*p.Name)),
			dob:  p.DateOfBirth.Format("2006-01-02"),
		}
		patientGroups[key] = append(patientGroups[key], p.PatientID)
	}
	for _, ids := range patientGroups {
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		findings = append(findings, newFinding(evalTime, model.CheckDuplicate,
			"patient_records", ids[0], model.IssuePotentialDuplicate, model.SeverityMedium,
			fmt.Sprintf("Duplicate patients found: %s", strings.Join(ids, ", ")),
			map[string]any{"patient_ids": ids, "duplicate_count": len(ids)},
		))
	}

	claimGroups := make(map[claimDupKey][]string)
	for i := range snap.Claims {
		c := &snap.Claims[i]
		if c.ServiceDate == nil {
			continue
		}
		key := claimDupKey{
			patientID:   c.PatientID,
			providerID:  c.ProviderID,
			serviceDate: c.ServiceDate.Format("2006-01-02"),
			total:       c.ClaimTotalAmount.String(),
		}
		claimGroups[key] = append(claimGroups[key], c.ClaimID)
	}
	for _, ids := range claimGroups {
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		findings = append(findings, newFinding(evalTime, model.CheckDuplicate,
			"claims", ids[0], model.IssuePotentialDuplicate, model.SeverityMedium,
			fmt.Sprintf("Duplicate claims found: %s", strings.Join(ids, ", ")),
			map[string]any{"claim_ids": ids, "duplicate_count": len(ids)},
		))
	}

	// Map iteration order is random; sort for a deterministic finding
	// sequence across runs.
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].TableName != findings[j].TableName {
			return findings[i].TableName > findings[j].TableName
		}
		return findings[i].RecordID < findings[j].RecordID
	})

	return findings, nil
}
