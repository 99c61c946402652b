// Package table implements the Table Operation Facade and the connection
// lifecycle state machine: the uniform CRUD surface the query engine
// drives, wrapping every backend call in connect/reconnect bookkeeping so a
// single event either completes or is explicitly dropped with diagnostic
// context, never silently lost and never corrupting the rest of the event
// flow.
//
// The backend is held as a backend.Adapter value (not a base class), the
// two lifecycle flags are plain atomics owned here rather than in the
// backend, and "fail on connection unavailable, retry once, then schedule"
// is an explicit bounded loop plus an Ok/Err return rather than exceptions
// unwinding across the backend boundary.
package table

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cepruntime/tablestore/internal/backend"
	"github.com/cepruntime/tablestore/internal/backoff"
	"github.com/cepruntime/tablestore/internal/compiled"
	"github.com/cepruntime/tablestore/internal/config"
	"github.com/cepruntime/tablestore/internal/event"
	"github.com/cepruntime/tablestore/internal/scheduler"
	"github.com/cepruntime/tablestore/internal/tabledef"
	"github.com/cepruntime/tablestore/pkg"
)

// ErrShutdown is returned by any CRUD call made after Shutdown. Rejecting
// post-shutdown calls outright, consistently, is the choice this module
// makes in place of silently re-entering the connect path.
var ErrShutdown = errors.New("table: instance is shut down")

// maxSyncAttempts bounds the synchronous retry loop: the first attempt, and
// at most one retry after a detected disconnect reconnects. An explicit
// loop bound stands in for tail recursion, which Go has no guarantee of.
const maxSyncAttempts = 2

// Instance is a Table Instance: the facade wrapping one backend.Adapter
// with connection lifecycle, backoff, and diagnostics. Thread-compatible
// but not thread-safe by contract — the caller serializes CRUD calls per
// table; only the lifecycle flags may be touched concurrently, by scheduled
// reconnect callbacks.
type Instance struct {
	engineName string
	def        *tabledef.Definition
	adapter    backend.Adapter
	scheduler  scheduler.Scheduler
	backoff    *backoff.Counter

	connected       atomic.Bool
	tryingToConnect atomic.Bool
	shutDown        atomic.Bool
}

// New constructs a Table Instance and drives the backend's one-shot Init.
// It does not connect — the first CRUD call does that.
func New(engineName string, def *tabledef.Definition, adapter backend.Adapter, cfg config.Reader, sched scheduler.Scheduler) (*Instance, error) {
	if sched == nil {
		sched = scheduler.Real{}
	}
	if err := adapter.Init(def, cfg); err != nil {
		return nil, fmt.Errorf("table %q: init: %w", def.ID(), err)
	}
	return &Instance{
		engineName: engineName,
		def:        def,
		adapter:    adapter,
		scheduler:  sched,
		backoff:    backoff.New(),
	}, nil
}

func (t *Instance) GetTableDefinition() *tabledef.Definition { return t.def }

// CompileUpdateSet delegates to the backend's compiler.
func (t *Instance) CompileUpdateSet(matchingMeta compiled.MatchingMetaInfo, assignments []compiled.Assignment) (*compiled.CompiledUpdateSet, error) {
	return t.adapter.CompileUpdateSet(t.def, matchingMeta, assignments)
}

// AddEvents inserts a stream-event chunk.
func (t *Instance) AddEvents(ctx context.Context, chunk *event.Chunk[event.StreamEvent]) error {
	if chunk.Len() == 0 {
		return t.connectOnEmpty(ctx)
	}
	_, err := executeOp(t, ctx, "addEvents", struct{}{}, func() (struct{}, error) {
		chunk.Reset()
		return struct{}{}, t.adapter.Add(ctx, chunk)
	}, func() { pkg.ErrorLog(t.dropMessage("addEvents", previewStream(chunk))) })
	return err
}

// Find evaluates compiledCondition against the table and returns the
// matching rows as a stream event chunk. On drop it returns an empty,
// non-nil chunk — the negative/empty result expected of a read operation.
func (t *Instance) Find(ctx context.Context, matching event.StateEvent, cond *compiled.CompiledCondition) (*event.Chunk[event.StreamEvent], error) {
	if err := t.checkCondition(cond); err != nil {
		return event.NewChunk[event.StreamEvent](nil), err
	}
	rows, err := executeOp(t, ctx, "find", []event.StreamEvent{}, func() ([]event.StreamEvent, error) {
		return t.adapter.Find(ctx, matching, cond)
	}, func() {
		pkg.ErrorLog(t.dropMessageMatching("find", matching))
	})
	return event.NewChunk(rows), err
}

// DeleteEvents removes rows matching compiledCondition for each event in
// the chunk.
func (t *Instance) DeleteEvents(ctx context.Context, chunk *event.Chunk[event.StateEvent], cond *compiled.CompiledCondition) error {
	if err := t.checkCondition(cond); err != nil {
		return err
	}
	if chunk.Len() == 0 {
		return t.connectOnEmpty(ctx)
	}
	_, err := executeOp(t, ctx, "deleteEvents", struct{}{}, func() (struct{}, error) {
		chunk.Reset()
		return struct{}{}, t.adapter.Delete(ctx, chunk, cond)
	}, func() { pkg.ErrorLog(t.dropMessage("deleteEvents", previewState(chunk))) })
	return err
}

// UpdateEvents applies compiledUpdateSet to rows matching compiledCondition
// for each event in the chunk.
func (t *Instance) UpdateEvents(ctx context.Context, chunk *event.Chunk[event.StateEvent], cond *compiled.CompiledCondition, updateSet *compiled.CompiledUpdateSet) error {
	if err := t.checkCondition(cond); err != nil {
		return err
	}
	if chunk.Len() == 0 {
		return t.connectOnEmpty(ctx)
	}
	_, err := executeOp(t, ctx, "updateEvents", struct{}{}, func() (struct{}, error) {
		chunk.Reset()
		return struct{}{}, t.adapter.Update(ctx, chunk, cond, updateSet)
	}, func() { pkg.ErrorLog(t.dropMessage("updateEvents", previewState(chunk))) })
	return err
}

// UpdateOrAddEvents applies compiledUpdateSet where compiledCondition
// matches, and inserts extractor(event) where it does not.
func (t *Instance) UpdateOrAddEvents(ctx context.Context, chunk *event.Chunk[event.StateEvent], cond *compiled.CompiledCondition, updateSet *compiled.CompiledUpdateSet, extractor event.AddingStreamEventExtractor) error {
	if err := t.checkCondition(cond); err != nil {
		return err
	}
	if chunk.Len() == 0 {
		return t.connectOnEmpty(ctx)
	}
	_, err := executeOp(t, ctx, "updateOrAddEvents", struct{}{}, func() (struct{}, error) {
		chunk.Reset()
		return struct{}{}, t.adapter.UpdateOrAdd(ctx, chunk, cond, updateSet, extractor)
	}, func() { pkg.ErrorLog(t.dropMessage("updateOrAddEvents", previewState(chunk))) })
	return err
}

// ContainsEvent reports whether any row matches compiledCondition. On drop
// it returns false.
func (t *Instance) ContainsEvent(ctx context.Context, matching event.StateEvent, cond *compiled.CompiledCondition) (bool, error) {
	if err := t.checkCondition(cond); err != nil {
		return false, err
	}
	return executeOp(t, ctx, "containsEvent", false, func() (bool, error) {
		return t.adapter.Contains(ctx, matching, cond)
	}, func() {
		pkg.ErrorLog(t.dropMessageMatching("containsEvent", matching))
	})
}

// Shutdown drives disconnect then destroy, then clears both lifecycle
// flags. Idempotent: calling it again is a no-op and does not invoke the
// backend's Destroy a second time.
func (t *Instance) Shutdown() {
	if !t.shutDown.CompareAndSwap(false, true) {
		return
	}
	t.adapter.Disconnect()
	t.adapter.Destroy()
	t.connected.Store(false)
	t.tryingToConnect.Store(false)
}

func (t *Instance) checkCondition(cond *compiled.CompiledCondition) error {
	if cond != nil && cond.TableID() != t.def.ID() {
		return fmt.Errorf("table %q: compiled condition is bound to table %q", t.def.ID(), cond.TableID())
	}
	return nil
}

// connectOnEmpty handles an empty chunk: it is a no-op that still performs
// the connection check, so the lifecycle state machine still runs, but no
// backend primitive is ever invoked.
func (t *Instance) connectOnEmpty(ctx context.Context) error {
	if t.shutDown.Load() {
		return ErrShutdown
	}
	if t.connected.Load() || t.tryingToConnect.Load() {
		return nil
	}
	return t.connectWithRetry(ctx)
}

// executeOp runs the lifecycle state machine around one backend primitive
// call, bounded to maxSyncAttempts synchronous primitive calls; connect
// attempts do not count against the bound. T is the primitive's
// success value; dropValue is returned (with a nil error) when the event is
// dropped rather than executed.
func executeOp[T any](t *Instance, ctx context.Context, opName string, dropValue T, primitive func() (T, error), logDrop func()) (T, error) {
	if t.shutDown.Load() {
		return dropValue, ErrShutdown
	}

	for primitiveCalls := 0; primitiveCalls < maxSyncAttempts; {
		switch {
		case t.connected.Load():
			primitiveCalls++
			result, err := primitive()
			if err == nil {
				return result, nil
			}
			if !backend.IsConnectionUnavailable(err) {
				return dropValue, err
			}
			t.connected.Store(false)
			pkg.ErrorLog(fmt.Sprintf("[%s] table %q: %s: connection unavailable: %v, will retry connection immediately.", t.engineName, t.def.ID(), opName, err))
			if fatal := t.connectWithRetry(ctx); fatal != nil {
				return dropValue, fatal
			}
			// loop: one bounded synchronous retry of the primitive.
		case t.tryingToConnect.Load():
			logDrop()
			return dropValue, nil
		default:
			if fatal := t.connectWithRetry(ctx); fatal != nil {
				return dropValue, fatal
			}
			// loop: retry now that connect has been attempted.
		}
	}

	// Bound exhausted without success or an explicit drop branch; treat as
	// a drop rather than attempting a third synchronous primitive call.
	logDrop()
	return dropValue, nil
}

// connectWithRetry attempts to (re)establish the connection. It returns a
// non-nil error only for a fatal (non-ConnectionUnavailable) failure from
// Connect, which the caller propagates to the query engine.
func (t *Instance) connectWithRetry(ctx context.Context) error {
	if t.connected.Load() {
		return nil
	}
	t.tryingToConnect.Store(true)

	err := t.adapter.Connect(ctx)
	if err == nil {
		t.connected.Store(true)
		t.tryingToConnect.Store(false)
		t.backoff.Reset()
		return nil
	}

	if backend.IsConnectionUnavailable(err) {
		pkg.ErrorLog(fmt.Sprintf("[%s] table %q: error while connecting: %v, will retry in %s.", t.engineName, t.def.ID(), err, t.backoff.Current()))
		delay := time.Duration(t.backoff.CurrentMillis()) * time.Millisecond
		t.backoff.Increment()
		t.scheduler.Schedule(delay, func() {
			t.connectWithRetry(context.Background())
		})
		return nil
	}

	// Fatal: clear tryingToConnect rather than stranding the table in a
	// permanent drop state.
	t.tryingToConnect.Store(false)
	pkg.ErrorLog(fmt.Sprintf("[%s] table %q: fatal error while connecting: %v", t.engineName, t.def.ID(), err))
	return err
}

func (t *Instance) dropMessage(op, payload string) string {
	return fmt.Sprintf("[%s] table %q: %s dropped, still trying to reconnect. events: %s", t.engineName, t.def.ID(), op, payload)
}

func (t *Instance) dropMessageMatching(op string, matching event.StateEvent) string {
	return fmt.Sprintf("[%s] table %q: %s failed, still trying to reconnect. matching event: %s", t.engineName, t.def.ID(), op, previewMatching(matching))
}
