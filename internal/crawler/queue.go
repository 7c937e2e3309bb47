package crawler

// frontierQueue is a two-tier queue: priority tasks always dequeue before normal
// ones. Both tiers are FIFO among themselves. Capacity bounds the combined length.
type frontierQueue struct {
	priority []Task
	normal   []Task
	capacity int
}

func newFrontierQueue(capacity int) *frontierQueue {
	return &frontierQueue{capacity: capacity}
}

// Push appends t to its tier. It reports false when the queue is full.
func (q *frontierQueue) Push(t Task) bool {
	if q.capacity > 0 && q.Len() >= q.capacity {
		return false
	}
	if t.Priority {
		q.priority = append(q.priority, t)
	} else {
		q.normal = append(q.normal, t)
	}
	return true
}

// Pop removes the next task, draining the priority tier first.
func (q *frontierQueue) Pop() (Task, bool) {
	if len(q.priority) > 0 {
		t := q.priority[0]
		q.priority[0] = Task{}
		q.priority = q.priority[1:]
		return t, true
	}
	if len(q.normal) > 0 {
		t := q.normal[0]
		q.normal[0] = Task{}
		q.normal = q.normal[1:]
		return t, true
	}
	return Task{}, false
}

// Len is the combined length of both tiers.
func (q *frontierQueue) Len() int {
	return len(q.priority) + len(q.normal)
}

// Full reports whether another Push would be rejected.
func (q *frontierQueue) Full() bool {
	return q.capacity > 0 && q.Len() >= q.capacity
}
