// Package access holds the patient-to-provider authorization relation.
// A grant is mutable only by the owning patient and is checked at use
// time, never cached at record-creation time.
package access

import (
	"github.com/medvault/medvault/internal/domain"
)

type Grant struct {
	Patient  domain.Address `json:"patient"`
	Provider domain.Address `json:"provider"`
	Granted  bool           `json:"granted"`
}

// Key identifies a grant in the authorization matrix.
type Key struct {
	Patient  domain.Address
	Provider domain.Address
}
