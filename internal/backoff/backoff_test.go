package backoff_test

import (
	"testing"
	"time"

	"gotest.tools/assert"

	"github.com/cepruntime/tablestore/internal/backoff"
)

func TestDoublesUpToCeiling(t *testing.T) {
	c := backoff.NewWithBounds(time.Second, 8*time.Second)
	assert.Equal(t, c.Current(), "1 sec")

	c.Increment()
	assert.Equal(t, c.Current(), "2 sec")
	c.Increment()
	assert.Equal(t, c.Current(), "4 sec")
	c.Increment()
	assert.Equal(t, c.Current(), "8 sec")

	// Ceiling reached: further increments are idempotent.
	c.Increment()
	assert.Equal(t, c.Current(), "8 sec")
	c.Increment()
	assert.Equal(t, c.Current(), "8 sec")
}

func TestResetReturnsToFloor(t *testing.T) {
	c := backoff.New()
	c.Increment()
	c.Increment()
	assert.Assert(t, c.CurrentMillis() > backoff.DefaultFloor.Milliseconds())

	c.Reset()
	assert.Equal(t, c.CurrentMillis(), backoff.DefaultFloor.Milliseconds())
}

func TestDefaultSequenceFormatsMinutes(t *testing.T) {
	c := backoff.New() // floor 1s, ceiling 1min
	for i := 0; i < 10; i++ {
		c.Increment()
	}
	assert.Equal(t, c.Current(), "1 min")
}
