package fakerouter

import (
	"sort"
	"sync"

	"stathat.com/c/consistent"
)

// Ring assigns keys to the storage nodes of one tier by consistent hashing.  It is safe for concurrent use.
type Ring struct {
	mu      sync.RWMutex
	hasher  *consistent.Consistent
	members map[string]struct{}
}

// NewRing creates an empty Ring placing numReplicas virtual points per node.
func NewRing(numReplicas int) *Ring {
	c := consistent.New()
	c.NumberOfReplicas = numReplicas
	return &Ring{
		hasher:  c,
		members: map[string]struct{}{},
	}
}

// Add adds node, returning false if it was already a member.
func (r *Ring) Add(node string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	// consistent miscounts members which are added twice.
	if _, ok := r.members[node]; ok {
		return false
	}
	r.members[node] = struct{}{}
	r.hasher.Add(node)
	return true
}

// Remove removes node, returning false if it was not a member.
func (r *Ring) Remove(node string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[node]; !ok {
		return false
	}
	delete(r.members, node)
	r.hasher.Remove(node)
	return true
}

// Members returns the sorted members of the ring.
func (r *Ring) Members() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]string, 0, len(r.members))
	for member := range r.members {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}

// Len returns the number of members.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Owners returns up to n distinct members responsible for key.  It returns consistent.ErrEmptyCircle if the ring
// has no members.
func (r *Ring) Owners(key string, n int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasher.GetN(key, n)
}
