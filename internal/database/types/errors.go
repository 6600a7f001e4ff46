package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDID indicates a malformed decentralized identifier.
	ErrInvalidDID = errors.New("invalid DID")
	// ErrInvalidURI indicates a malformed AT-URI.
	ErrInvalidURI = errors.New("invalid AT-URI")
	// ErrInvalidInput indicates a request failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidStatus indicates a status value or transition that is not allowed.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTrustFactor indicates a PDS trust factor outside [0, 1].
	ErrInvalidTrustFactor = errors.New("trust factor must be between 0 and 1")

	// ErrNotFound is the parent of every lookup failure.
	ErrNotFound = errors.New("not found")
	// ErrAccountNotFound indicates the account has not been ingested.
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)
	// ErrQueueItemNotFound indicates the moderation queue item does not exist.
	ErrQueueItemNotFound = fmt.Errorf("queue item %w", ErrNotFound)
	// ErrSeedNotFound indicates the trust seed does not exist.
	ErrSeedNotFound = fmt.Errorf("trust seed %w", ErrNotFound)
	// ErrClusterNotFound indicates the sybil cluster does not exist.
	ErrClusterNotFound = fmt.Errorf("sybil cluster %w", ErrNotFound)
	// ErrFlagNotFound indicates the behavioral flag does not exist.
	ErrFlagNotFound = fmt.Errorf("behavioral flag %w", ErrNotFound)
	// ErrPDSFactorNotFound indicates no trust factor is stored for the host.
	ErrPDSFactorNotFound = fmt.Errorf("pds trust factor %w", ErrNotFound)

	// ErrConflict is the parent of every state conflict.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyReviewed indicates the queue item is no longer pending.
	ErrAlreadyReviewed = fmt.Errorf("queue item already reviewed: %w", ErrConflict)
	// ErrDuplicateSeed indicates a seed with the same DID and scope already exists.
	ErrDuplicateSeed = fmt.Errorf("trust seed already exists: %w", ErrConflict)

	// ErrRateLimited indicates the caller exceeded a write budget.
	ErrRateLimited = errors.New("rate limited")
)

// ErrorKind is the coarse category an error falls into.
type ErrorKind string

const (
	ErrorKindValidation  ErrorKind = "validation"
	ErrorKindNotFound    ErrorKind = "not_found"
	ErrorKindConflict    ErrorKind = "conflict"
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindFatal       ErrorKind = "fatal"
)

// Classify maps an error onto its category. Unknown errors are fatal.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidDID), errors.Is(err, ErrInvalidURI), errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidTrustFactor):
		return ErrorKindValidation
	case errors.Is(err, ErrNotFound):
		return ErrorKindNotFound
	case errors.Is(err, ErrConflict):
		return ErrorKindConflict
	case errors.Is(err, ErrRateLimited):
		return ErrorKindRateLimited
	default:
		return ErrorKindFatal
	}
}
