package audio

import (
	"container/heap"
	"sync"
)

// Task is a callback queued to run once the device clock reaches a frame.
// It is created by [Context.Schedule] and can be cancelled until it runs.
type Task struct {
	frame int64
	seq   uint64
	fn    func()
	index int
	owner *scheduler
}

// Frame returns the frame the task is due at.
func (t *Task) Frame() int64 {
	return t.frame
}

// Cancel removes the task from the queue. It reports whether the task was
// still pending; a task that already ran or was cancelled returns false.
func (t *Task) Cancel() bool {
	if t == nil || t.owner == nil {
		return false
	}
	return t.owner.cancel(t)
}

// scheduler is a queue of tasks keyed by device frame. Unlike a wall clock
// timer it only moves forward when the device renders audio, so a suspended
// device never fires teardown early.
type scheduler struct {
	mu    sync.Mutex
	tasks taskHeap
	seq   uint64
}

func (s *scheduler) schedule(frame int64, fn func()) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &Task{frame: frame, seq: s.seq, fn: fn, owner: s}
	heap.Push(&s.tasks, t)
	return t
}

func (s *scheduler) cancel(t *Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.index < 0 || t.index >= len(s.tasks) || s.tasks[t.index] != t {
		return false
	}
	heap.Remove(&s.tasks, t.index)
	return true
}

// due pops every task whose frame is at or before now, in frame order.
func (s *scheduler) due(now int64) []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ready []*Task
	for len(s.tasks) > 0 && s.tasks[0].frame <= now {
		ready = append(ready, heap.Pop(&s.tasks).(*Task))
	}
	return ready
}

func (s *scheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *scheduler) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		t.index = -1
	}
	s.tasks = s.tasks[:0]
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].frame != h[j].frame {
		return h[i].frame < h[j].frame
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
