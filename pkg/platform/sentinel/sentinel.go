package sentinel

import "errors"

// Sentinel errors describe facts about stored resources. Stores return these,
// possibly wrapped, and services translate them into domain errors.
//
// Input problems are not facts about storage; report those with
// pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
