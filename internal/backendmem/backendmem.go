// Package backendmem is a reference in-memory Backend Adapter: a Table
// Instance wired to this adapter keeps its multiset of rows entirely in
// process memory, stored in a github.com/tobshub/go-sortedmap keyed by an
// atomic insertion-order counter. There is no on-disk persistence.
//
// Connect/Disconnect/Destroy are trivial here since there is no real
// external resource; the adapter exists to give the facade something
// concrete to drive and to exercise go-sortedmap, not to model a
// production backend. Locking follows the HasLocker/LockWrap pattern in
// pkg/mutex.go rather than raw mutex calls.
package backendmem

import (
	"context"
	"sync"
	"sync/atomic"

	sorted "github.com/tobshub/go-sortedmap"

	"github.com/cepruntime/tablestore/internal/backend"
	"github.com/cepruntime/tablestore/internal/compiled"
	"github.com/cepruntime/tablestore/internal/config"
	"github.com/cepruntime/tablestore/internal/event"
	"github.com/cepruntime/tablestore/internal/tabledef"
	"github.com/cepruntime/tablestore/pkg"
)

func rowOrder(a, b event.Row) bool {
	return a[sysRowID].(int64) < b[sysRowID].(int64)
}

const sysRowID = "__row_id__"

// Adapter is the reference in-memory backend.Adapter implementation.
type Adapter struct {
	locker    sync.RWMutex
	def       *tabledef.Definition
	rows      *sorted.SortedMap[int64, event.Row]
	nextID    atomic.Int64
	destroyed bool
}

func New() *Adapter { return &Adapter{} }

// GetLocker satisfies pkg.HasLocker, letting pkg.LockWrap/RLockWrap drive
// this adapter's critical sections.
func (a *Adapter) GetLocker() *sync.RWMutex { return &a.locker }

func (a *Adapter) Init(def *tabledef.Definition, _ config.Reader) error {
	a.def = def
	a.rows = sorted.New[int64, event.Row](0, rowOrder)
	return nil
}

// Connect always succeeds: there is no remote resource to dial.
func (a *Adapter) Connect(context.Context) error { return nil }

func (a *Adapter) Disconnect() {}

func (a *Adapter) Destroy() {
	pkg.LockWrap(a, func() {
		a.rows = sorted.New[int64, event.Row](0, rowOrder)
		a.destroyed = true
	})
}

func (a *Adapter) Add(_ context.Context, chunk *event.Chunk[event.StreamEvent]) error {
	pkg.LockWrap(a, func() {
		for chunk.HasNext() {
			e := chunk.Next()
			row := e.Row.Clone()
			id := a.nextID.Add(1)
			row[sysRowID] = id
			a.rows.Insert(id, row)
		}
	})
	return nil
}

func (a *Adapter) Find(_ context.Context, matching event.StateEvent, cond *compiled.CompiledCondition) ([]event.StreamEvent, error) {
	var out []event.StreamEvent
	pkg.RLockWrap(a, func() {
		a.forEach(func(row event.Row) bool {
			if cond == nil || cond.Evaluate(row, matching) {
				out = append(out, event.StreamEvent{Row: stripRowID(row)})
			}
			return true
		})
	})
	return out, nil
}

func (a *Adapter) Contains(_ context.Context, matching event.StateEvent, cond *compiled.CompiledCondition) (bool, error) {
	found := false
	pkg.RLockWrap(a, func() {
		a.forEach(func(row event.Row) bool {
			if cond == nil || cond.Evaluate(row, matching) {
				found = true
				return false
			}
			return true
		})
	})
	return found, nil
}

func (a *Adapter) Delete(_ context.Context, chunk *event.Chunk[event.StateEvent], cond *compiled.CompiledCondition) error {
	pkg.LockWrap(a, func() {
		for chunk.HasNext() {
			e := chunk.Next()
			var toDelete []int64
			a.forEach(func(row event.Row) bool {
				if cond == nil || cond.Evaluate(row, e) {
					toDelete = append(toDelete, row[sysRowID].(int64))
				}
				return true
			})
			for _, id := range toDelete {
				a.rows.Delete(id)
			}
		}
	})
	return nil
}

func (a *Adapter) Update(_ context.Context, chunk *event.Chunk[event.StateEvent], cond *compiled.CompiledCondition, updateSet *compiled.CompiledUpdateSet) error {
	pkg.LockWrap(a, func() { a.applyUpdates(chunk, cond, updateSet) })
	return nil
}

func (a *Adapter) UpdateOrAdd(_ context.Context, chunk *event.Chunk[event.StateEvent], cond *compiled.CompiledCondition, updateSet *compiled.CompiledUpdateSet, extractor event.AddingStreamEventExtractor) error {
	pkg.LockWrap(a, func() {
		for chunk.HasNext() {
			e := chunk.Next()
			matched := false
			var toUpdate []event.Row
			a.forEach(func(row event.Row) bool {
				if cond == nil || cond.Evaluate(row, e) {
					matched = true
					toUpdate = append(toUpdate, row)
				}
				return true
			})
			for _, row := range toUpdate {
				id := row[sysRowID].(int64)
				for k, v := range updateSet.Apply(e) {
					row[k] = v
				}
				a.rows.Replace(id, row)
			}
			if !matched {
				newRow := extractor(e).Row.Clone()
				id := a.nextID.Add(1)
				newRow[sysRowID] = id
				a.rows.Insert(id, newRow)
			}
		}
	})
	return nil
}

func (a *Adapter) applyUpdates(chunk *event.Chunk[event.StateEvent], cond *compiled.CompiledCondition, updateSet *compiled.CompiledUpdateSet) {
	for chunk.HasNext() {
		e := chunk.Next()
		var toUpdate []event.Row
		a.forEach(func(row event.Row) bool {
			if cond == nil || cond.Evaluate(row, e) {
				toUpdate = append(toUpdate, row)
			}
			return true
		})
		for _, row := range toUpdate {
			id := row[sysRowID].(int64)
			for k, v := range updateSet.Apply(e) {
				row[k] = v
			}
			a.rows.Replace(id, row)
		}
	}
}

func (a *Adapter) CompileUpdateSet(def *tabledef.Definition, matchingMeta compiled.MatchingMetaInfo, assignments []compiled.Assignment) (*compiled.CompiledUpdateSet, error) {
	return compiled.CompileUpdateSet(def, matchingMeta, assignments)
}

// forEach walks every row in insertion order via the sortedmap's channel
// iterator. fn returning false stops iteration early.
func (a *Adapter) forEach(fn func(event.Row) bool) {
	iterCh, err := a.rows.IterCh()
	if err != nil {
		return
	}
	for rec := range iterCh.Records() {
		if !fn(rec.Val) {
			return
		}
	}
}

func stripRowID(row event.Row) event.Row {
	out := row.Clone()
	delete(out, sysRowID)
	return out
}

var _ backend.Adapter = (*Adapter)(nil)
var _ pkg.HasLocker = (*Adapter)(nil)
