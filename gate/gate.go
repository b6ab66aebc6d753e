// Package gate serializes browser sessions per account. At most one worker
// may hold a lease for a given account identity at any time; the gate is the
// single synchronization point preventing two workers from driving the same
// account's browser concurrently.
package gate

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"
)

// Lease records an acquired session slot for one account.
type Lease struct {
	ID         string
	AcquiredAt time.Time
}

// Gate is an in-memory lease map. The zero value is not usable; use New.
type Gate struct {
	mu     sync.Mutex
	leases map[string]Lease
}

func New() *Gate {
	return &Gate{leases: map[string]Lease{}}
}

// Acquire records a lease for the account and returns true iff no lease
// currently exists for it. A false return has no side effects.
func (g *Gate) Acquire(account string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.leases[account]; ok {
		return false
	}
	g.leases[account] = Lease{
		ID:         uuid.NewString(),
		AcquiredAt: time.Now(),
	}
	return true
}

// Release removes the account's lease. Releasing an account that holds no
// lease is a no-op.
func (g *Gate) Release(account string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.leases, account)
}

func (g *Gate) IsActive(account string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.leases[account]
	return ok
}

// ListActive returns the accounts that currently hold a lease.
func (g *Gate) ListActive() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return maps.Keys(g.leases)
}
