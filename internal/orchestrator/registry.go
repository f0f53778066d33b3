package orchestrator

import (
	"sort"
	"sync"
	"time"
)

// taskRegistry tracks in-flight record tasks by record index. It replaces
// ad-hoc shared maps with explicit insert/remove/lookup operations behind
// one lock.
type taskRegistry struct {
	mu       sync.Mutex
	inflight map[int]taskEntry
}

type taskEntry struct {
	name    string
	started time.Time
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{inflight: make(map[int]taskEntry)}
}

func (r *taskRegistry) insert(index int, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight[index] = taskEntry{name: name, started: time.Now()}
}

func (r *taskRegistry) remove(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, index)
}

func (r *taskRegistry) lookup(index int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.inflight[index]
	return e.name, ok
}

func (r *taskRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// indexes returns the in-flight record indexes in ascending order.
func (r *taskRegistry) indexes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.inflight))
	for idx := range r.inflight {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
