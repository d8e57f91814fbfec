package domain

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("medicine not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrDuplicateKey        = errors.New("medicine code already exists")
	ErrMalformedRecord     = errors.New("malformed record")
	ErrPersistence         = errors.New("stock file persistence failed")
	ErrCriticalConsistency = errors.New("stock file replace failed, durable state may be inconsistent")
	ErrQuarantined         = errors.New("stock writes are quarantined until reload")
)
