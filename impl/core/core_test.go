package core

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"coupondrop/entity"
	"coupondrop/lib/clock"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockStore struct {
	addCouponFn    func(code string, now time.Time) (*entity.Coupon, error)
	couponsFn      func() ([]*entity.Coupon, error)
	availableFn    func() ([]*entity.Coupon, error)
	claimedFn      func() ([]*entity.Coupon, error)
	claimOldestFn  func(identity string, now time.Time) (*entity.Coupon, error)
	claimByIdFn    func(id, identity string, now time.Time) (*entity.Coupon, error)
	updateCouponFn func(id string, upd *entity.CouponUpdate, now time.Time) (*entity.Coupon, error)
	deleteCouponFn func(id string) (bool, error)
}

func (m *mockStore) AddCoupon(code string, now time.Time) (*entity.Coupon, error) {
	if m.addCouponFn != nil {
		return m.addCouponFn(code, now)
	}
	return &entity.Coupon{Code: code}, nil
}

func (m *mockStore) Coupons() ([]*entity.Coupon, error) {
	if m.couponsFn != nil {
		return m.couponsFn()
	}
	return nil, nil
}

func (m *mockStore) AvailableCoupons() ([]*entity.Coupon, error) {
	if m.availableFn != nil {
		return m.availableFn()
	}
	return nil, nil
}

func (m *mockStore) ClaimedCoupons() ([]*entity.Coupon, error) {
	if m.claimedFn != nil {
		return m.claimedFn()
	}
	return nil, nil
}

func (m *mockStore) ClaimOldest(identity string, now time.Time) (*entity.Coupon, error) {
	if m.claimOldestFn != nil {
		return m.claimOldestFn(identity, now)
	}
	return nil, nil
}

func (m *mockStore) ClaimById(id, identity string, now time.Time) (*entity.Coupon, error) {
	if m.claimByIdFn != nil {
		return m.claimByIdFn(id, identity, now)
	}
	return nil, nil
}

func (m *mockStore) UpdateCoupon(id string, upd *entity.CouponUpdate, now time.Time) (*entity.Coupon, error) {
	if m.updateCouponFn != nil {
		return m.updateCouponFn(id, upd, now)
	}
	return nil, nil
}

func (m *mockStore) DeleteCoupon(id string) (bool, error) {
	if m.deleteCouponFn != nil {
		return m.deleteCouponFn(id)
	}
	return false, nil
}

type allowGuard struct{}

func (allowGuard) Check(string) error { return nil }

type denyGuard struct{}

func (denyGuard) Check(string) error { return entity.ErrClaimCooldown }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCore(db Store, g AbuseGuard) *Core {
	return New(db, nil, g, clock.System{}, testLogger())
}

func TestClaimNext_Success(t *testing.T) {
	store := &mockStore{
		claimOldestFn: func(identity string, now time.Time) (*entity.Coupon, error) {
			return &entity.Coupon{
				Code:       "PROMO1",
				Status:     entity.StatusClaimed,
				AssignedTo: identity,
				UpdatedAt:  now,
			}, nil
		},
	}
	c := newTestCore(store, allowGuard{})

	coupon, err := c.ClaimNext("1.2.3.4")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if coupon.Code != "PROMO1" {
		t.Fatalf("expected PROMO1, got %s", coupon.Code)
	}
	if coupon.AssignedTo != "1.2.3.4" {
		t.Fatalf("expected assignment to 1.2.3.4, got %q", coupon.AssignedTo)
	}
	if coupon.Status != entity.StatusClaimed {
		t.Fatalf("expected claimed status, got %s", coupon.Status)
	}
}

func TestClaimNext_GuardDenies(t *testing.T) {
	called := false
	store := &mockStore{
		claimOldestFn: func(identity string, now time.Time) (*entity.Coupon, error) {
			called = true
			return nil, nil
		},
	}
	c := newTestCore(store, denyGuard{})

	_, err := c.ClaimNext("1.2.3.4")
	if !errors.Is(err, entity.ErrClaimCooldown) {
		t.Fatalf("expected ErrClaimCooldown, got %v", err)
	}
	if called {
		t.Fatal("allocator must not run after a guard denial")
	}
}

func TestClaimNext_PoolExhausted(t *testing.T) {
	c := newTestCore(&mockStore{}, allowGuard{})

	_, err := c.ClaimNext("1.2.3.4")
	if !errors.Is(err, entity.ErrNoCouponsAvailable) {
		t.Fatalf("expected ErrNoCouponsAvailable, got %v", err)
	}
}

func TestClaimCoupon_UnknownIdSameAsExhausted(t *testing.T) {
	c := newTestCore(&mockStore{}, allowGuard{})

	_, err := c.ClaimCoupon("1.2.3.4", primitive.NewObjectID().Hex())
	if !errors.Is(err, entity.ErrNoCouponsAvailable) {
		t.Fatalf("expected ErrNoCouponsAvailable, got %v", err)
	}
}

func TestAddCoupon_GeneratesCodeWhenEmpty(t *testing.T) {
	var gotCode string
	store := &mockStore{
		addCouponFn: func(code string, now time.Time) (*entity.Coupon, error) {
			gotCode = code
			return &entity.Coupon{Code: code}, nil
		},
	}
	c := newTestCore(store, allowGuard{})

	if _, err := c.AddCoupon(""); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotCode == "" {
		t.Fatal("expected a generated code")
	}

	if _, err := c.AddCoupon("SPRING25"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotCode != "SPRING25" {
		t.Fatalf("explicit code must pass through, got %q", gotCode)
	}
}

func TestClaimHistory_Projection(t *testing.T) {
	updated := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &mockStore{
		claimedFn: func() ([]*entity.Coupon, error) {
			return []*entity.Coupon{
				{Code: "B", Status: entity.StatusClaimed, AssignedTo: "9.9.9.9", UpdatedAt: updated},
				{Code: "A", Status: entity.StatusClaimed, AssignedTo: "1.2.3.4", UpdatedAt: updated.Add(-time.Minute)},
			}, nil
		},
	}
	c := newTestCore(store, allowGuard{})

	records, err := c.ClaimHistory()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Code != "B" || records[0].AssignedTo != "9.9.9.9" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if !records[0].UpdatedAt.Equal(updated) {
		t.Fatalf("expected updatedAt preserved, got %v", records[0].UpdatedAt)
	}
}

func TestUpdateCoupon_NotFound(t *testing.T) {
	c := newTestCore(&mockStore{}, allowGuard{})

	_, err := c.UpdateCoupon(primitive.NewObjectID().Hex(), &entity.CouponUpdate{})
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCoupon_NotFound(t *testing.T) {
	c := newTestCore(&mockStore{}, allowGuard{})

	err := c.DeleteCoupon(primitive.NewObjectID().Hex())
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// poolStore mimics the store's conditional-update semantics: selection and
// transition happen under one lock, as FindOneAndUpdate does in one round
// trip.
type poolStore struct {
	mockStore
	mu      sync.Mutex
	coupons []*entity.Coupon
}

func newPoolStore(codes ...string) *poolStore {
	s := &poolStore{}
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, code := range codes {
		s.coupons = append(s.coupons, &entity.Coupon{
			Id:        primitive.NewObjectID(),
			Code:      code,
			Status:    entity.StatusAvailable,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	return s
}

func (s *poolStore) ClaimOldest(identity string, now time.Time) (*entity.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *entity.Coupon
	for _, c := range s.coupons {
		if c.Status != entity.StatusAvailable {
			continue
		}
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) {
			oldest = c
		}
	}
	if oldest == nil {
		return nil, nil
	}
	oldest.Status = entity.StatusClaimed
	oldest.AssignedTo = identity
	oldest.UpdatedAt = now
	claimed := *oldest
	return &claimed, nil
}

func TestClaimNext_ConcurrentClaimsNeverDouble(t *testing.T) {
	const available = 5
	const requests = 20

	codes := make([]string, available)
	for i := range codes {
		codes[i] = fmt.Sprintf("PROMO%d", i)
	}
	store := newPoolStore(codes...)
	c := newTestCore(store, allowGuard{})

	var wg sync.WaitGroup
	results := make(chan *entity.Coupon, requests)
	failures := make(chan error, requests)

	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			coupon, err := c.ClaimNext(fmt.Sprintf("10.0.0.%d", i))
			if err != nil {
				failures <- err
				return
			}
			results <- coupon
		}(i)
	}
	wg.Wait()
	close(results)
	close(failures)

	seen := make(map[string]bool)
	for coupon := range results {
		if seen[coupon.Code] {
			t.Fatalf("coupon %s claimed twice", coupon.Code)
		}
		seen[coupon.Code] = true
		if coupon.Status != entity.StatusClaimed || coupon.AssignedTo == "" {
			t.Fatalf("claimed coupon in inconsistent state: %+v", coupon)
		}
	}
	if len(seen) != available {
		t.Fatalf("expected %d successful claims, got %d", available, len(seen))
	}

	var notFound int
	for err := range failures {
		if !errors.Is(err, entity.ErrNoCouponsAvailable) {
			t.Fatalf("unexpected claim error: %v", err)
		}
		notFound++
	}
	if notFound != requests-available {
		t.Fatalf("expected %d not-found outcomes, got %d", requests-available, notFound)
	}
}
