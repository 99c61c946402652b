package event_test

import (
	"testing"

	"gotest.tools/assert"

	"github.com/cepruntime/tablestore/internal/event"
)

func TestChunkIteratesForwardOnce(t *testing.T) {
	c := event.NewChunk([]event.StreamEvent{{Row: event.Row{"a": 1}}, {Row: event.Row{"a": 2}}})
	assert.Equal(t, c.Len(), 2)

	var seen []int
	for c.HasNext() {
		seen = append(seen, c.Next().Row["a"].(int))
	}
	assert.DeepEqual(t, seen, []int{1, 2})
	assert.Assert(t, !c.HasNext())
	assert.Equal(t, c.Len(), 0)
}

func TestChunkNextPanicsWhenExhausted(t *testing.T) {
	c := event.NewChunk([]event.StreamEvent{{Row: event.Row{"a": 1}}})
	c.Next()

	defer func() {
		r := recover()
		assert.Assert(t, r != nil)
	}()
	c.Next()
}

func TestChunkResetReplaysEvents(t *testing.T) {
	c := event.NewChunk([]event.StreamEvent{{Row: event.Row{"a": 1}}})
	c.Next()
	assert.Assert(t, !c.HasNext())

	c.Reset()
	assert.Assert(t, c.HasNext())
	assert.Equal(t, c.Next().Row["a"], 1)
}

func TestRowCloneIsIndependent(t *testing.T) {
	r := event.Row{"a": 1}
	clone := r.Clone()
	clone["a"] = 2
	assert.Equal(t, r["a"], 1)
}
