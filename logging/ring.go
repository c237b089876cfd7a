package logging

import (
	"sync"
	"time"
)

// WarningEntry is one retained warn-or-above log line.
type WarningEntry struct {
	Time      time.Time `json:"time"`
	Message   string    `json:"message"`
	Subsystem Subsystem `json:"subsystem"`
}

// warningRing keeps the most recent warn/error lines for the admin status
// endpoint, so operators can see recent problems without scraping logs.
type warningRing struct {
	mu      sync.Mutex
	entries []WarningEntry
	next    int
	full    bool
}

func newWarningRing(capacity int) *warningRing {
	return &warningRing{entries: make([]WarningEntry, capacity)}
}

func (r *warningRing) add(msg string, subsystem Subsystem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = WarningEntry{Time: time.Now(), Message: msg, Subsystem: subsystem}
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

func (r *warningRing) snapshot() []WarningEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []WarningEntry
	if r.full {
		out = append(out, r.entries[r.next:]...)
	}
	out = append(out, r.entries[:r.next]...)
	return out
}

// RecentWarnings returns retained warn/error entries, oldest first.
func RecentWarnings() []WarningEntry {
	return ring.snapshot()
}
