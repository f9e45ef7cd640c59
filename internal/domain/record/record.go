package record

import (
	"time"

	"github.com/medvault/medvault/internal/domain"
)

// MedicalRecord is append-only metadata: once created it is never updated
// or deleted. Content lives off-system behind ExternalRef (e.g. an IPFS
// CID); the core stores only the pointer.
type MedicalRecord struct {
	ID             uint64         `json:"id"`
	PatientAddress domain.Address `json:"patient_address"`
	RecordType     string         `json:"record_type"`
	Description    string         `json:"description"`
	ExternalRef    string         `json:"external_ref"`
	Timestamp      time.Time      `json:"timestamp"`
	AddedBy        domain.Address `json:"added_by"`
}

func (r *MedicalRecord) Clone() MedicalRecord {
	return *r
}

type AddRecordCommand struct {
	RecordType  string
	Description string
	ExternalRef string
}
