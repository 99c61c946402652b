package scheduler_test

import (
	"testing"
	"time"

	"gotest.tools/assert"

	"github.com/cepruntime/tablestore/internal/scheduler"
)

func TestVirtualFiresOnlyDueTasks(t *testing.T) {
	v := scheduler.NewVirtual()
	var fired []string

	v.Schedule(time.Second, func() { fired = append(fired, "1s") })
	v.Schedule(3*time.Second, func() { fired = append(fired, "3s") })

	v.Advance(2 * time.Second)
	assert.DeepEqual(t, fired, []string{"1s"})
	assert.Equal(t, v.Pending(), 1)

	v.Advance(time.Second)
	assert.DeepEqual(t, fired, []string{"1s", "3s"})
	assert.Equal(t, v.Pending(), 0)
}

func TestVirtualOrdersByDeadlineThenScheduleOrder(t *testing.T) {
	v := scheduler.NewVirtual()
	var fired []int

	v.Schedule(2*time.Second, func() { fired = append(fired, 2) })
	v.Schedule(2*time.Second, func() { fired = append(fired, 1) })
	v.Schedule(time.Second, func() { fired = append(fired, 0) })

	v.Advance(5 * time.Second)
	assert.DeepEqual(t, fired, []int{0, 2, 1})
}

func TestVirtualDoesNotRunTasksScheduledDuringSameAdvance(t *testing.T) {
	v := scheduler.NewVirtual()
	ran := false

	v.Schedule(time.Second, func() {
		v.Schedule(0, func() { ran = true })
	})
	v.Advance(time.Second)
	assert.Assert(t, !ran)

	v.Advance(0)
	assert.Assert(t, ran)
}
