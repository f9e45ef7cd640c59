package access

import "errors"

var (
	// ErrNoGrant rejects a provider write for a patient that has not
	// granted (or has revoked) access.
	ErrNoGrant = errors.New("no permission to add records for this patient")
)
