// Package store provides key-value storage with single-key conditional
// writes. All cross-record coordination in the service is built on the
// compare-and-swap contract exposed here; no in-process locks are shared
// between requests.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("store: record not found")
	ErrAlreadyExists = errors.New("store: record already exists")
	// ErrConflict means a conditional write lost its race: the stored status
	// did not match the expected one. Callers reload and decide whether the
	// transition was already applied by someone else.
	ErrConflict    = errors.New("store: conditional write conflict")
	ErrUnavailable = errors.New("store: backend unavailable")
)

// Record is the unit of storage: an opaque document plus its status lifted
// out so conditional writes can match on it. The status inside Doc and the
// Status field are kept in lockstep by the registries; the lift happens once
// at this boundary, never in business logic.
type Record struct {
	Key    string
	Status string
	Doc    []byte
}

type Store interface {
	// Get returns the record at key, or ErrNotFound.
	Get(ctx context.Context, table, key string) (*Record, error)

	// Insert writes the record only if the key is absent, otherwise
	// ErrAlreadyExists. Never clobbers an in-flight record.
	Insert(ctx context.Context, table string, rec *Record) error

	// UpdateIfStatus replaces the record only while the stored status equals
	// expectedStatus. ErrConflict signals a lost race, ErrNotFound an absent
	// key. Only one concurrent caller can win for a given expected status.
	UpdateIfStatus(ctx context.Context, table, key, expectedStatus string, rec *Record) error

	// Scan returns every record in the table. Best-effort: it may miss or
	// include records written concurrently, so callers must not rely on it
	// for hard uniqueness guarantees.
	Scan(ctx context.Context, table string) ([]*Record, error)
}

// Table names shared by every backend.
const (
	TableVisitors  = "visitors"
	TablePasscodes = "passcodes"
)
