package types

import (
	"errors"
	"fmt"
)

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Entity operation errors. NotFound and validation failures are fatal to the
// calling operation and are never retried automatically.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidID       = errors.New("invalid entity ID")
	ErrInvalidName     = errors.New("invalid name")
	ErrDuplicateName   = errors.New("duplicate name")
	ErrTypeMismatch    = errors.New("value type does not match column type")
	ErrInvalidPatch    = errors.New("invalid patch")
	ErrCountOutOfRange = errors.New("row count out of range")

	// ErrDefaultViewProtected is returned when a caller attempts to delete a
	// table's permanent default view. Non-retryable; surface to the user.
	ErrDefaultViewProtected = errors.New("default view cannot be deleted")

	// ErrLastTable is returned when a caller attempts to delete the only
	// remaining table owned by the acting user.
	ErrLastTable = errors.New("cannot delete the last table")
)

// ErrVersionConflict classifies a rejected patch-apply caused by the client's
// known version lagging the server's. Recoverable by refetching the
// authoritative version and retrying. Use errors.Is against this sentinel;
// the concrete error is a *VersionConflictError carrying the server version.
var ErrVersionConflict = errors.New("view version conflict")

// VersionConflictError reports a version-checked patch apply that lost the
// race. CurrentVersion is the server's version at rejection time.
type VersionConflictError struct {
	ViewID         string
	GivenVersion   int64
	CurrentVersion int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("view %s: version conflict: have %d, server at %d",
		e.ViewID, e.GivenVersion, e.CurrentVersion)
}

// Is makes errors.Is(err, ErrVersionConflict) match.
func (e *VersionConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}
