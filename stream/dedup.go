package stream

// dedupTracker records the message identifiers a session has already
// emitted. One tracker lives for exactly one session; it is only touched
// from that session's goroutine and needs no locking.
type dedupTracker struct {
	seen map[string]struct{}
}

func newDedupTracker() *dedupTracker {
	return &dedupTracker{seen: make(map[string]struct{})}
}

func (d *dedupTracker) contains(id string) bool {
	_, ok := d.seen[id]
	return ok
}

func (d *dedupTracker) record(id string) {
	d.seen[id] = struct{}{}
}
