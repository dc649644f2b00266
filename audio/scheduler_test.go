package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerDueInFrameOrder(t *testing.T) {
	var s scheduler
	var order []int
	s.schedule(30, func() { order = append(order, 30) })
	s.schedule(10, func() { order = append(order, 10) })
	s.schedule(20, func() { order = append(order, 20) })
	s.schedule(10, func() { order = append(order, 11) })

	for _, task := range s.due(20) {
		task.fn()
	}
	assert.Equal(t, []int{10, 11, 20}, order)
	assert.Equal(t, 1, s.pending())
	assert.Empty(t, s.due(29))
	assert.Len(t, s.due(30), 1)
}

func TestTaskCancel(t *testing.T) {
	var s scheduler
	a := s.schedule(10, func() {})
	b := s.schedule(20, func() {})

	assert.True(t, a.Cancel())
	assert.False(t, a.Cancel(), "second cancel")
	assert.Equal(t, int64(20), b.Frame())

	ready := s.due(100)
	require.Len(t, ready, 1)
	assert.Same(t, b, ready[0])
	assert.False(t, b.Cancel(), "cancel after it ran")
}

func TestTaskCancelNil(t *testing.T) {
	var task *Task
	assert.False(t, task.Cancel())
}

func TestSchedulerClear(t *testing.T) {
	var s scheduler
	a := s.schedule(10, func() {})
	s.schedule(20, func() {})
	s.clear()

	assert.Equal(t, 0, s.pending())
	assert.False(t, a.Cancel())
	assert.Empty(t, s.due(100))
}
