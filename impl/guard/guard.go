package guard

import (
	"fmt"
	"time"

	"coupondrop/entity"
	"coupondrop/lib/clock"
)

type Database interface {
	RecentClaim(identity string, since time.Time) (*entity.Coupon, error)
}

// Guard decides whether a requester may attempt a claim: at most one
// claimed coupon per identity inside a rolling window. The window is a
// constructor parameter so the policy can be tuned or swapped without
// touching the allocator.
type Guard struct {
	db     Database
	window time.Duration
	clock  clock.Clock
}

func New(db Database, window time.Duration, clk clock.Clock) *Guard {
	return &Guard{
		db:     db,
		window: window,
		clock:  clk,
	}
}

// Check returns ErrClaimCooldown when identity claimed a coupon inside the
// window, nil when the claim may proceed. Check itself records nothing;
// the claim transition is the allocator's job.
func (g *Guard) Check(identity string) error {
	if g.db == nil {
		return fmt.Errorf("database not connected")
	}
	since := g.clock.Now().Add(-g.window)
	coupon, err := g.db.RecentClaim(identity, since)
	if err != nil {
		return err
	}
	if coupon != nil {
		return entity.ErrClaimCooldown
	}
	return nil
}
