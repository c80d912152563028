package domain

import "github.com/google/uuid"

// UUIDSource generates random UUIDv4 identifiers for all domain entities.
//
// Entity ids only need global uniqueness for merge-by-id correctness, not
// time ordering, so v4 is sufficient (ordering comes from UpdatedAt).
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDSource struct{}

// NewID returns a new hyphenated UUID string.
func (UUIDSource) NewID() string {
	return uuid.NewString()
}

// NewID is the package-level shorthand used where no injected IDSource is
// in play (interactive CLI paths).
func NewID() string {
	return uuid.NewString()
}
