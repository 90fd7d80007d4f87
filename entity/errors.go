package entity

import "errors"

var (
	// ErrNoCouponsAvailable covers both an exhausted pool and a claim-by-id
	// request naming a coupon that does not exist or is already claimed.
	ErrNoCouponsAvailable = errors.New("no coupons available")
	// ErrClaimCooldown means the requester claimed a coupon inside the
	// abuse-guard window and must wait.
	ErrClaimCooldown = errors.New("claim cooldown active")
	// ErrNotFound is returned by admin CRUD when the target id matches nothing.
	ErrNotFound = errors.New("coupon not found")
	// ErrDuplicateCode means the coupon code is already in the pool.
	ErrDuplicateCode = errors.New("coupon code already exists")
	// ErrInvalidCredentials is a single outcome for unknown username and
	// wrong password, so login responses cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers bad signature, wrong algorithm and expiry.
	ErrInvalidToken = errors.New("invalid token")
)
