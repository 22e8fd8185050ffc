package crawler

import "sync"

// frontier is the FIFO queue of URLs waiting for a fetch attempt.
// It refuses URLs that are already queued.
type frontier struct {
	queue  []string
	queued map[string]struct{}
}

func newFrontier() *frontier {
	return &frontier{
		queue:  make([]string, 0),
		queued: make(map[string]struct{}),
	}
}

// push appends u to the tail unless it is already queued.
func (f *frontier) push(u string) bool {
	if _, ok := f.queued[u]; ok {
		return false
	}
	f.queued[u] = struct{}{}
	f.queue = append(f.queue, u)
	return true
}

// pop removes and returns the head of the queue.
func (f *frontier) pop() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	u := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	delete(f.queued, u)
	return u, true
}

// contains reports whether u is currently queued.
func (f *frontier) contains(u string) bool {
	_, ok := f.queued[u]
	return ok
}

func (f *frontier) len() int {
	return len(f.queue)
}

// visitedSet records URLs that have been claimed for a fetch attempt.
// It only grows. markIfAbsent is an atomic insert-if-absent, so two workers
// can never claim the same URL.
type visitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[string]struct{})}
}

// markIfAbsent adds u and reports whether it was absent before.
func (v *visitedSet) markIfAbsent(u string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[u]; ok {
		return false
	}
	v.seen[u] = struct{}{}
	return true
}

func (v *visitedSet) has(u string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.seen[u]
	return ok
}

func (v *visitedSet) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}
