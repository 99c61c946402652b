// Package backend defines the inward-facing primitive operations any
// concrete storage must implement for the Table facade to drive it: a plain
// interface the facade holds a value of, rather than a class hierarchy of
// backends.
package backend

import (
	"context"
	"errors"

	"github.com/cepruntime/tablestore/internal/compiled"
	"github.com/cepruntime/tablestore/internal/config"
	"github.com/cepruntime/tablestore/internal/event"
	"github.com/cepruntime/tablestore/internal/tabledef"
)

// ErrConnectionUnavailable is the distinguished transient error: any
// backend primitive may wrap this to signal the facade should enter the
// reconnect path instead of propagating a fatal error to the caller.
var ErrConnectionUnavailable = errors.New("backend: connection unavailable")

// ConnectionUnavailable wraps a backend-specific cause as the distinguished
// transient error kind. errors.Is(err, ErrConnectionUnavailable) reports
// true for any error built this way.
type ConnectionUnavailable struct {
	Cause error
}

func (e *ConnectionUnavailable) Error() string {
	if e.Cause == nil {
		return ErrConnectionUnavailable.Error()
	}
	return ErrConnectionUnavailable.Error() + ": " + e.Cause.Error()
}

func (e *ConnectionUnavailable) Unwrap() error { return e.Cause }

func (e *ConnectionUnavailable) Is(target error) bool { return target == ErrConnectionUnavailable }

// Unavailable wraps cause as a ConnectionUnavailable error.
func Unavailable(cause error) error {
	return &ConnectionUnavailable{Cause: cause}
}

// IsConnectionUnavailable reports whether err (or anything it wraps) is the
// distinguished transient connectivity error.
func IsConnectionUnavailable(err error) bool {
	return errors.Is(err, ErrConnectionUnavailable)
}

// Adapter is the Backend Adapter Contract a concrete storage implements.
// Every method that reaches out to storage may return a
// ConnectionUnavailable error; any other error is fatal and is propagated
// to the facade's caller as-is.
type Adapter interface {
	// Init performs one-shot initialization. It must not open network
	// connections — those belong to Connect.
	Init(def *tabledef.Definition, cfg config.Reader) error

	// Connect establishes backend resources. May return a
	// ConnectionUnavailable error, or any other fatal error.
	Connect(ctx context.Context) error

	// Disconnect releases resources without destroying them.
	Disconnect()

	// Destroy releases everything. Idempotent.
	Destroy()

	Add(ctx context.Context, chunk *event.Chunk[event.StreamEvent]) error
	Find(ctx context.Context, matching event.StateEvent, cond *compiled.CompiledCondition) ([]event.StreamEvent, error)
	Delete(ctx context.Context, chunk *event.Chunk[event.StateEvent], cond *compiled.CompiledCondition) error
	Update(ctx context.Context, chunk *event.Chunk[event.StateEvent], cond *compiled.CompiledCondition, updateSet *compiled.CompiledUpdateSet) error
	UpdateOrAdd(ctx context.Context, chunk *event.Chunk[event.StateEvent], cond *compiled.CompiledCondition, updateSet *compiled.CompiledUpdateSet, extractor event.AddingStreamEventExtractor) error
	Contains(ctx context.Context, matching event.StateEvent, cond *compiled.CompiledCondition) (bool, error)

	// CompileUpdateSet produces a CompiledUpdateSet. Must be deterministic
	// and side-effect free; backends that have no storage-specific
	// compilation concerns can simply delegate to compiled.CompileUpdateSet.
	CompileUpdateSet(def *tabledef.Definition, matchingMeta compiled.MatchingMetaInfo, assignments []compiled.Assignment) (*compiled.CompiledUpdateSet, error)
}
