package backendmem_test

import (
	"context"
	"testing"

	"gotest.tools/assert"

	"github.com/cepruntime/tablestore/internal/backendmem"
	"github.com/cepruntime/tablestore/internal/coltype"
	"github.com/cepruntime/tablestore/internal/compiled"
	"github.com/cepruntime/tablestore/internal/config"
	"github.com/cepruntime/tablestore/internal/event"
	"github.com/cepruntime/tablestore/internal/tabledef"
)

func usersDef(t *testing.T) *tabledef.Definition {
	t.Helper()
	def, err := tabledef.New("users", []tabledef.ColumnDefinition{
		{Name: "id", Type: coltype.Int},
		{Name: "name", Type: coltype.String},
	})
	assert.NilError(t, err)
	return def
}

func idCondition(t *testing.T, def *tabledef.Definition) *compiled.CompiledCondition {
	t.Helper()
	meta := compiled.NewMatchingMetaInfo(map[string]coltype.ColumnType{"id": coltype.Int})
	cond, err := compiled.CompileCondition(def, meta, compiled.ConditionSpec{
		Terms: []compiled.Term{{Column: "id", Op: compiled.OpEqual, Operand: compiled.Operand{FromStream: "id"}}},
	})
	assert.NilError(t, err)
	return cond
}

func TestAddFindDeleteRoundTrip(t *testing.T) {
	def := usersDef(t)
	a := backendmem.New()
	assert.NilError(t, a.Init(def, config.Map{}))
	assert.NilError(t, a.Connect(context.Background()))
	t.Cleanup(a.Destroy)

	assert.NilError(t, a.Add(context.Background(), event.NewChunk([]event.StreamEvent{
		{Row: event.Row{"id": 1, "name": "ada"}},
		{Row: event.Row{"id": 2, "name": "grace"}},
	})))

	cond := idCondition(t, def)
	matching := event.StateEvent{Stream: event.StreamEvent{Row: event.Row{"id": 2}}}

	found, err := a.Contains(context.Background(), matching, cond)
	assert.NilError(t, err)
	assert.Assert(t, found)

	rows, err := a.Find(context.Background(), matching, cond)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0].Row["name"], "grace")

	// The internal row-id bookkeeping key must never leak to callers.
	_, leaked := rows[0].Row["__row_id__"]
	assert.Assert(t, !leaked)

	assert.NilError(t, a.Delete(context.Background(), event.NewChunk([]event.StateEvent{matching}), cond))
	found, err = a.Contains(context.Background(), matching, cond)
	assert.NilError(t, err)
	assert.Assert(t, !found)
}

func TestUpdateOrAddInsertsOnNoMatch(t *testing.T) {
	def := usersDef(t)
	a := backendmem.New()
	assert.NilError(t, a.Init(def, config.Map{}))
	assert.NilError(t, a.Connect(context.Background()))
	t.Cleanup(a.Destroy)

	cond := idCondition(t, def)
	meta := compiled.NewMatchingMetaInfo(map[string]coltype.ColumnType{"id": coltype.Int})
	updateSet, err := compiled.CompileUpdateSet(def, meta, []compiled.Assignment{
		{Column: "name", Expr: compiled.Literal{Value: "updated"}},
	})
	assert.NilError(t, err)

	matching := event.StateEvent{Stream: event.StreamEvent{Row: event.Row{"id": 5}}}
	extractor := func(e event.StateEvent) event.StreamEvent {
		return event.StreamEvent{Row: event.Row{"id": e.Stream.Row["id"], "name": "fresh"}}
	}

	assert.NilError(t, a.UpdateOrAdd(context.Background(), event.NewChunk([]event.StateEvent{matching}), cond, updateSet, extractor))
	rows, err := a.Find(context.Background(), matching, cond)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0].Row["name"], "fresh")

	assert.NilError(t, a.UpdateOrAdd(context.Background(), event.NewChunk([]event.StateEvent{matching}), cond, updateSet, extractor))
	rows, err = a.Find(context.Background(), matching, cond)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0].Row["name"], "updated")
}

func TestUpdateAppliesToAllMatchingRows(t *testing.T) {
	def := usersDef(t)
	a := backendmem.New()
	assert.NilError(t, a.Init(def, config.Map{}))
	assert.NilError(t, a.Connect(context.Background()))
	t.Cleanup(a.Destroy)

	assert.NilError(t, a.Add(context.Background(), event.NewChunk([]event.StreamEvent{
		{Row: event.Row{"id": 1, "name": "pending"}},
		{Row: event.Row{"id": 2, "name": "pending"}},
		{Row: event.Row{"id": 3, "name": "pending"}},
	})))

	meta := compiled.NewMatchingMetaInfo(map[string]coltype.ColumnType{"name": coltype.String})
	cond, err := compiled.CompileCondition(def, meta, compiled.ConditionSpec{
		Terms: []compiled.Term{{Column: "name", Op: compiled.OpEqual, Operand: compiled.Operand{FromStream: "name"}}},
	})
	assert.NilError(t, err)

	updateSet, err := compiled.CompileUpdateSet(def, meta, []compiled.Assignment{
		{Column: "name", Expr: compiled.Literal{Value: "done"}},
	})
	assert.NilError(t, err)

	matching := event.StateEvent{Stream: event.StreamEvent{Row: event.Row{"name": "pending"}}}
	assert.NilError(t, a.Update(context.Background(), event.NewChunk([]event.StateEvent{matching}), cond, updateSet))

	allMatch := event.StateEvent{Stream: event.StreamEvent{Row: event.Row{"name": "done"}}}
	rows, err := a.Find(context.Background(), allMatch, cond)
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 3)
}

func TestDestroyResetsStore(t *testing.T) {
	def := usersDef(t)
	a := backendmem.New()
	assert.NilError(t, a.Init(def, config.Map{}))
	assert.NilError(t, a.Connect(context.Background()))

	assert.NilError(t, a.Add(context.Background(), event.NewChunk([]event.StreamEvent{
		{Row: event.Row{"id": 1, "name": "ada"}},
	})))
	a.Destroy()

	cond := idCondition(t, def)
	matching := event.StateEvent{Stream: event.StreamEvent{Row: event.Row{"id": 1}}}
	found, err := a.Contains(context.Background(), matching, cond)
	assert.NilError(t, err)
	assert.Assert(t, !found)
}
