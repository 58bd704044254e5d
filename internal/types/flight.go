package types

// Passenger holds the traveller details attached to a PNR.
type Passenger struct {
	FullName    string `json:"fullName"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	DocumentID  string `json:"documentId,omitempty"`
	Seat        string `json:"seat,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// PnrRecord links a booking reference to a policy. PolicyID is zero until a
// policy is purchased against the PNR. A PNR is exactly 6 characters and
// unique within its flight record.
type PnrRecord struct {
	Pnr            string    `json:"pnr"`
	PolicyID       uint64    `json:"policyId,omitempty"`
	Policyholder   string    `json:"policyholder,omitempty"`
	Wallet         string    `json:"wallet,omitempty"`
	Passenger      Passenger `json:"passenger"`
	NftMetadataURL string    `json:"nft_metadata_url,omitempty"`
	PayoutTxSig    string    `json:"payout_tx_sig,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      int64     `json:"created_at"`
	UpdatedAt      int64     `json:"updated_at"`
}

// FlightRecord is the document held by the external metadata store, keyed
// by flight number and calendar date. ActualDepartureUnix is nil until the
// departure has been observed.
type FlightRecord struct {
	FlightNumber           string      `json:"flight_number"`
	Date                   string      `json:"date"`
	ScheduledDepartureUnix int64       `json:"scheduled_departure_unix,omitempty"`
	ActualDepartureUnix    *int64      `json:"actual_departure_unix,omitempty"`
	Origin                 string      `json:"origin,omitempty"`
	Destination            string      `json:"destination,omitempty"`
	Status                 string      `json:"status,omitempty"`
	DelayMinutes           uint32      `json:"delay_minutes,omitempty"`
	Pnrs                   []PnrRecord `json:"pnrs"`
	CreatedAt              int64       `json:"created_at"`
	UpdatedAt              int64       `json:"updated_at"`
}

// Pnr returns the PNR entry with the given reference, or nil.
func (r *FlightRecord) Pnr(pnr string) *PnrRecord {
	for i := range r.Pnrs {
		if r.Pnrs[i].Pnr == pnr {
			return &r.Pnrs[i]
		}
	}
	return nil
}

// PolicyIDs returns the distinct policy ids linked to this flight record.
func (r *FlightRecord) PolicyIDs() []uint64 {
	seen := map[uint64]bool{}
	var ids []uint64
	for _, p := range r.Pnrs {
		if p.PolicyID == 0 || seen[p.PolicyID] {
			continue
		}
		seen[p.PolicyID] = true
		ids = append(ids, p.PolicyID)
	}
	return ids
}
