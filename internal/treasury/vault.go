package treasury

import (
	"context"
	"fmt"
	"sync"
)

// MemoryVault tracks escrowed value in memory. It backs local development
// when no custody service is configured, and tests. Payouts draw from the
// combined pool, mirroring a single escrow account on the substrate side.
type MemoryVault struct {
	mu      sync.Mutex
	held    map[int64]int64 // per campaign, for inspection
	pool    int64
	payouts map[string]int64
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		held:    make(map[int64]int64),
		payouts: make(map[string]int64),
	}
}

func (v *MemoryVault) EscrowIn(_ context.Context, campaignID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("escrow in: non-positive amount %d", amount)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.held[campaignID] += amount
	v.pool += amount
	return nil
}

func (v *MemoryVault) PayOut(_ context.Context, address string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("pay out: non-positive amount %d", amount)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if amount > v.pool {
		return fmt.Errorf("pay out: %d exceeds escrow pool %d", amount, v.pool)
	}

	v.pool -= amount
	v.payouts[address] += amount
	return nil
}

// PoolBalance returns the total value currently in custody.
func (v *MemoryVault) PoolBalance() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pool
}

// PaidTo returns the total value paid out to an address so far.
func (v *MemoryVault) PaidTo(address string) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.payouts[address]
}

// Held returns the gross value escrowed for a campaign.
func (v *MemoryVault) Held(campaignID int64) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.held[campaignID]
}
