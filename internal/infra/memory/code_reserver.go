package memory

import (
	"context"
	"sync"
	"time"
)

// CodeReserver holds access code reservations in process memory for a TTL.
type CodeReserver struct {
	ttl   time.Duration
	clock func() time.Time

	mu    sync.Mutex
	codes map[string]time.Time
}

func NewCodeReserver(ttl time.Duration) *CodeReserver {
	return &CodeReserver{
		ttl:   ttl,
		clock: time.Now,
		codes: make(map[string]time.Time),
	}
}

// Reserve claims code unless a live reservation exists. Expired entries are swept on the way.
func (r *CodeReserver) Reserve(_ context.Context, code string) (bool, error) {
	now := r.clock()
	r.mu.Lock()
	defer r.mu.Unlock()
	for c, expires := range r.codes {
		if !expires.After(now) {
			delete(r.codes, c)
		}
	}
	if _, ok := r.codes[code]; ok {
		return false, nil
	}
	r.codes[code] = now.Add(r.ttl)
	return true, nil
}

func (r *CodeReserver) Release(_ context.Context, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, code)
}
