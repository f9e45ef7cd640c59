package identity

import (
	"github.com/medvault/medvault/internal/domain"
)

// Patient is created once on first successful registration and never
// deleted. RecordIDs grows monotonically as providers add records.
type Patient struct {
	Address      domain.Address `json:"address"`
	Name         string         `json:"name"`
	DateOfBirth  int64          `json:"date_of_birth"` // unix seconds, opaque to the core
	ContactInfo  string         `json:"contact_info"`  // opaque, typically ciphertext
	IsRegistered bool           `json:"is_registered"`
	RecordIDs    []uint64       `json:"record_ids"`
}

// Clone returns a snapshot safe to hand outside the state machine.
func (p *Patient) Clone() Patient {
	cp := *p
	cp.RecordIDs = append([]uint64(nil), p.RecordIDs...)
	return cp
}

type Provider struct {
	Address      domain.Address `json:"address"`
	IsRegistered bool           `json:"is_registered"`
}

type RegisterPatientCommand struct {
	Name        string
	DateOfBirth int64
	ContactInfo string
}
