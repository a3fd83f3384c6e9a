package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus represents the lifecycle state of a claim.
type ClaimStatus string

const (
	ClaimStatusSubmitted ClaimStatus = "SUBMITTED"
	ClaimStatusPending   ClaimStatus = "PENDING"
	ClaimStatusProcessed ClaimStatus = "PROCESSED"
	ClaimStatusDenied    ClaimStatus = "DENIED"
	ClaimStatusPaid      ClaimStatus = "PAID"
)

// PatientRecord is a row from the patient_records source table.
// Demographic and contact columns are nullable; active records are
// expected (not enforced) to have them populated.
type PatientRecord struct {
	PatientID       string     `json:"patient_id"`
	Name            *string    `json:"name,omitempty"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`
	InsuranceID     *string    `json:"insurance_id,omitempty"`
	PrimaryProvider *string    `json:"primary_provider,omitempty"`
	ContactPhone    *string    `json:"contact_phone,omitempty"`
	ContactEmail    *string    `json:"contact_email,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Provider is a row from the providers source table.
type Provider struct {
	ProviderID        string     `json:"provider_id"`
	ProviderName      *string    `json:"provider_name,omitempty"`
	NPINumber         *string    `json:"npi_number,omitempty"`
	LicenseNumber     *string    `json:"license_number,omitempty"`
	LicenseState      *string    `json:"license_state,omitempty"`
	LicenseExpiryDate *time.Time `json:"license_expiry_date,omitempty"`
	Specialty         *string    `json:"specialty,omitempty"`
	ContactEmail      *string    `json:"contact_email,omitempty"`
	IsActive          bool       `json:"is_active"`
}

// Claim is a row from the claims source table. Nullable monetary columns
// are pointers; nil participates in arithmetic as zero.
type Claim struct {
	ClaimID               string           `json:"claim_id"`
	PatientID             string           `json:"patient_id"`
	ProviderID            string           `json:"provider_id"`
	ClaimTotalAmount      decimal.Decimal  `json:"claim_total_amount"`
	ServiceDate           *time.Time       `json:"service_date,omitempty"`
	SubmissionDate        *time.Time       `json:"submission_date,omitempty"`
	ProcessingDate        *time.Time       `json:"processing_date,omitempty"`
	Status                ClaimStatus      `json:"status"`
	InsurancePaidAmount   *decimal.Decimal `json:"insurance_paid_amount,omitempty"`
	PatientResponsibility *decimal.Decimal `json:"patient_responsibility,omitempty"`
	AdjustmentAmount      *decimal.Decimal `json:"adjustment_amount,omitempty"`
}

// ClaimLineItem is a row from the claims_line_items source table.
type ClaimLineItem struct {
	LineItemID     string          `json:"line_item_id"`
	ClaimID        string          `json:"claim_id"`
	LineItemAmount decimal.Decimal `json:"line_item_amount"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

// Encounter is a row from the encounters source table.
type Encounter struct {
	EncounterID           string     `json:"encounter_id"`
	PatientID             string     `json:"patient_id"`
	ProviderID            string     `json:"provider_id"`
	EncounterDate         *time.Time `json:"encounter_date,omitempty"`
	DocumentationComplete bool       `json:"documentation_complete"`
	BillingSubmitted      bool       `json:"billing_submitted"`
}

// AmountOrZero returns the pointed-to amount, or zero when the column was null.
func AmountOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
