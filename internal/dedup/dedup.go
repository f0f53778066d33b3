// Package dedup detects distinct input rows that resolved to the same
// website. The first record to claim a domain owns it; every later claimant
// is marked a duplicate of the owner. Rows are only ever re-labeled, never
// dropped, so output row count always matches input row count.
package dedup

import (
	"sync"

	"github.com/kostichs/company-enricher/internal/urlnorm"
)

// Registry tracks which input row first claimed each normalized domain.
// Safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	owners map[string]int // normalized domain -> first claiming row index
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{owners: make(map[string]int)}
}

// Claim registers a resolved URL for a row. Returns the owning row index
// and whether this claim is a duplicate of an earlier one. URLs that
// normalize to an empty domain never collide.
//
// Claims race under concurrency, so the owner is the first record to
// finish, not necessarily the lowest input index.
func (r *Registry) Claim(rawURL string, index int) (owner int, duplicate bool) {
	domain := urlnorm.Normalize(rawURL)
	if domain == "" {
		return index, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.owners[domain]; ok {
		return owner, owner != index
	}
	r.owners[domain] = index
	return index, false
}

// Seen reports whether a domain already has an owner, without claiming it.
func (r *Registry) Seen(rawURL string) bool {
	domain := urlnorm.Normalize(rawURL)
	if domain == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.owners[domain]
	return ok
}

// Len returns the number of distinct domains claimed so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners)
}
