package core

import (
	"fmt"
	"log/slog"
	"time"

	"coupondrop/entity"
	"coupondrop/lib/clock"
	"coupondrop/lib/sl"

	"github.com/google/uuid"
)

type Store interface {
	AddCoupon(code string, now time.Time) (*entity.Coupon, error)
	Coupons() ([]*entity.Coupon, error)
	AvailableCoupons() ([]*entity.Coupon, error)
	ClaimedCoupons() ([]*entity.Coupon, error)
	ClaimOldest(identity string, now time.Time) (*entity.Coupon, error)
	ClaimById(id, identity string, now time.Time) (*entity.Coupon, error)
	UpdateCoupon(id string, upd *entity.CouponUpdate, now time.Time) (*entity.Coupon, error)
	DeleteCoupon(id string) (bool, error)
}

type AuthService interface {
	Login(username, password string) (string, error)
	VerifyToken(token string) (string, error)
}

type AbuseGuard interface {
	Check(identity string) error
}

// Core wires the store, abuse guard and session manager behind the
// operations the HTTP handlers consume.
type Core struct {
	db    Store
	auth  AuthService
	guard AbuseGuard
	clock clock.Clock
	log   *slog.Logger
}

func New(db Store, auth AuthService, guard AbuseGuard, clk clock.Clock, log *slog.Logger) *Core {
	if db == nil {
		panic("store is nil")
	}
	return &Core{
		db:    db,
		auth:  auth,
		guard: guard,
		clock: clk,
		log:   log.With(sl.Module("core")),
	}
}

func (c *Core) Login(username, password string) (string, error) {
	if c.auth == nil {
		return "", fmt.Errorf("auth service not connected")
	}
	return c.auth.Login(username, password)
}

func (c *Core) AuthenticateByToken(token string) (string, error) {
	if c.auth == nil {
		return "", fmt.Errorf("auth service not connected")
	}
	return c.auth.VerifyToken(token)
}

func (c *Core) AvailableCoupons() ([]*entity.Coupon, error) {
	return c.db.AvailableCoupons()
}

// ClaimNext assigns the oldest available coupon to identity. The guard
// runs first; the selection and the state transition happen in one
// conditional store update, never as a read followed by a write.
func (c *Core) ClaimNext(identity string) (*entity.Coupon, error) {
	if err := c.checkGuard(identity); err != nil {
		return nil, err
	}
	coupon, err := c.db.ClaimOldest(identity, c.clock.Now())
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, entity.ErrNoCouponsAvailable
	}
	c.log.Info("coupon claimed",
		slog.String("code", coupon.Code),
		slog.String("assigned_to", identity),
	)
	return coupon, nil
}

// ClaimCoupon is the explicit-id claim variant; an unknown, malformed or
// already-claimed id yields the same not-available outcome.
func (c *Core) ClaimCoupon(identity, id string) (*entity.Coupon, error) {
	if err := c.checkGuard(identity); err != nil {
		return nil, err
	}
	coupon, err := c.db.ClaimById(id, identity, c.clock.Now())
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, entity.ErrNoCouponsAvailable
	}
	c.log.Info("coupon claimed",
		slog.String("code", coupon.Code),
		slog.String("assigned_to", identity),
	)
	return coupon, nil
}

func (c *Core) checkGuard(identity string) error {
	if c.guard == nil {
		return fmt.Errorf("abuse guard not connected")
	}
	return c.guard.Check(identity)
}

// AddCoupon creates an available coupon. An empty code requests a
// generated one, for batch seeding of promo pools.
func (c *Core) AddCoupon(code string) (*entity.Coupon, error) {
	if code == "" {
		code = uuid.NewString()
	}
	coupon, err := c.db.AddCoupon(code, c.clock.Now())
	if err != nil {
		return nil, err
	}
	c.log.Info("coupon added", slog.String("code", coupon.Code))
	return coupon, nil
}

func (c *Core) Coupons() ([]*entity.Coupon, error) {
	return c.db.Coupons()
}

// ClaimHistory projects claimed coupons, most recently updated first.
func (c *Core) ClaimHistory() ([]*entity.ClaimRecord, error) {
	coupons, err := c.db.ClaimedCoupons()
	if err != nil {
		return nil, err
	}
	records := make([]*entity.ClaimRecord, 0, len(coupons))
	for _, coupon := range coupons {
		records = append(records, &entity.ClaimRecord{
			Code:       coupon.Code,
			AssignedTo: coupon.AssignedTo,
			UpdatedAt:  coupon.UpdatedAt,
		})
	}
	return records, nil
}

func (c *Core) UpdateCoupon(id string, upd *entity.CouponUpdate) (*entity.Coupon, error) {
	coupon, err := c.db.UpdateCoupon(id, upd, c.clock.Now())
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, entity.ErrNotFound
	}
	return coupon, nil
}

func (c *Core) DeleteCoupon(id string) error {
	deleted, err := c.db.DeleteCoupon(id)
	if err != nil {
		return err
	}
	if !deleted {
		return entity.ErrNotFound
	}
	c.log.Info("coupon deleted", slog.String("id", id))
	return nil
}
