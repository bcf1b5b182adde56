package inventory

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Find when no instance matches the query.
// Callers must treat it as distinct from ErrAmbiguous; "not found" and
// "ambiguous" lead to different operator messages.
var ErrNotFound = errors.New("inventory: no servers found")

// ErrAmbiguous is returned by Find when more than one instance matches a
// query that must resolve to exactly one.
var ErrAmbiguous = errors.New("inventory: multiple servers found")

// QuotaError is returned by Create when the remote service refuses the
// request for capacity reasons. The remote message is surfaced verbatim to
// the operator; the condition is recoverable, not fatal.
type QuotaError struct {
	Message string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("inventory: quota exceeded: %s", e.Message)
}

// Client is Kumo's abstraction over the remote compute service. All calls
// are synchronous round-trips; any error other than the conditions above is
// unexpected and propagates to the framework boundary untouched.
//
// Implementations must be safe for concurrent use; Kumo itself holds no
// mutable state across commands.
type Client interface {
	// Create provisions a new instance and returns its reference.
	Create(ctx context.Context, req CreateRequest) (*Reference, error)

	// Find returns exactly one matching instance, ErrNotFound for zero
	// matches, or ErrAmbiguous for more than one.
	Find(ctx context.Context, q Query) (*Reference, error)

	// FindAll returns every matching instance. Zero matches is a nil slice,
	// not an error.
	FindAll(ctx context.Context, q Query) ([]*Reference, error)

	// Delete removes the referenced instance. The caller must have resolved
	// a concrete reference first; deleting by guesswork is not supported.
	Delete(ctx context.Context, ref *Reference) error
}
