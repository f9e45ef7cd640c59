package identity

import "errors"

var (
	ErrPatientAlreadyRegistered = errors.New("patient already registered")
	ErrPatientNotRegistered     = errors.New("patient not registered")
	ErrNameRequired             = errors.New("name cannot be empty")
	ErrNotOwner                 = errors.New("only owner can perform this action")
	ErrInvalidProviderAddress   = errors.New("invalid provider address")
	ErrProviderNotRegistered    = errors.New("provider not registered")
)
