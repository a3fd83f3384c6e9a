package model

// Snapshot is a read-only view of all source tables as of the evaluation
// timestamp. Checks never mutate it; lookup maps are built once at
// construction so referential and amount checks avoid repeated scans.
type Snapshot struct {
	Patients   []PatientRecord `json:"patients"`
	Providers  []Provider      `json:"providers"`
	Claims     []Claim         `json:"claims"`
	LineItems  []ClaimLineItem `json:"line_items"`
	Encounters []Encounter     `json:"encounters"`

	PatientByID      map[string]*PatientRecord  `json:"-"`
	ProviderByID     map[string]*Provider       `json:"-"`
	LineItemsByClaim map[string][]ClaimLineItem `json:"-"`
}

// NewSnapshot builds a Snapshot and its lookup maps from source rows.
func NewSnapshot(patients []PatientRecord, providers []Provider, claims []Claim, lineItems []ClaimLineItem, encounters []Encounter) *Snapshot {
	snap := &Snapshot{
		Patients:   patients,
		Providers:  providers,
		Claims:     claims,
		LineItems:  lineItems,
		Encounters: encounters,

		PatientByID:      make(map[string]*PatientRecord, len(patients)),
		ProviderByID:     make(map[string]*Provider, len(providers)),
		LineItemsByClaim: make(map[string][]ClaimLineItem, len(claims)),
	}
	for i := range patients {
		snap.PatientByID[patients[i].PatientID] = &patients[i]
	}
	for i := range providers {
		snap.ProviderByID[providers[i].ProviderID] = &providers[i]
	}
	for _, li := range lineItems {
		snap.LineItemsByClaim[li.ClaimID] = append(snap.LineItemsByClaim[li.ClaimID], li)
	}
	return snap
}
