package quality

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sells-group/healthqa-cli/internal/config"
	"github.com/sells-group/healthqa-cli/internal/model"
)

var testEvalTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testCheckConfig() config.CheckConfig {
	return config.CheckConfig{
		Parallelism:             1,
		StaleClaimDays:          30,
		HighAmountThreshold:     50000,
		HighFrequencyCount:      50,
		HighFrequencyWindowDays: 365,
		StaleRecordDays:         730,
		DocumentationGraceDays:  7,
		BillingGraceDays:        14,
	}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func decPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func daysAgo(n int) time.Time {
	return testEvalTime.AddDate(0, 0, -n)
}

// completePatient returns an active patient with every required field set.
func completePatient(id string) model.PatientRecord {
	return model.PatientRecord{
		PatientID:       id,
		Name:            strPtr("Jane Doe"),
		DateOfBirth:     timePtr(time.Date(1980, 3, 15, 0, 0, 0, 0, time.UTC)),
		InsuranceID:     strPtr("INS-1001"),
		PrimaryProvider: strPtr("PRV-1"),
		ContactPhone:    strPtr("555-123-4567"),
		ContactEmail:    strPtr("jane.doe@example.com"),
		IsActive:        true,
		CreatedAt:       daysAgo(400),
		UpdatedAt:       daysAgo(5),
	}
}

// completeProvider returns an active provider with every required field set
// and a license valid past the evaluation time.
func completeProvider(id string) model.Provider {
	return model.Provider{
		ProviderID:        id,
		ProviderName:      strPtr("Dr. Smith"),
		NPINumber:         strPtr("1234567890"),
		LicenseNumber:     strPtr("LIC-9001"),
		LicenseState:      strPtr("CA"),
		LicenseExpiryDate: timePtr(testEvalTime.AddDate(1, 0, 0)),
		Specialty:         strPtr("cardiology"),
		ContactEmail:      strPtr("dr.smith@clinic.example.com"),
		IsActive:          true,
	}
}

func snapshotOf(patients []model.PatientRecord, providers []model.Provider, claims []model.Claim, lineItems []model.ClaimLineItem, encounters []model.Encounter) *model.Snapshot {
	return model.NewSnapshot(patients, providers, claims, lineItems, encounters)
}

func emptySnapshot() *model.Snapshot {
	return model.NewSnapshot(nil, nil, nil, nil, nil)
}
