package twitch

import "sync"

// Queue is a FIFO of outbound commands. Any goroutine may push; the
// connector's sender loop is the only consumer.
type Queue struct {
	mu    sync.Mutex
	items []string
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a command
func (q *Queue) Push(cmd string) {
	q.mu.Lock()
	q.items = append(q.items, cmd)
	q.mu.Unlock()
}

// PushFront puts cmds, in order, ahead of everything already queued
func (q *Queue) PushFront(cmds ...string) {
	q.mu.Lock()
	items := make([]string, 0, len(cmds)+len(q.items))
	items = append(items, cmds...)
	q.items = append(items, q.items...)
	q.mu.Unlock()
}

// Pop removes the oldest command
func (q *Queue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return "", false
	}
	cmd := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return cmd, true
}

// Len returns the number of queued commands
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
