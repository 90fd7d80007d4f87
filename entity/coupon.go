package entity

import (
	"net/http"
	"time"

	"coupondrop/lib/validate"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CouponStatus is the lifecycle state of a coupon. A coupon is created
// available and transitions to claimed exactly once per successful claim;
// admin edits may force it back.
type CouponStatus string

const (
	StatusAvailable CouponStatus = "available"
	StatusClaimed   CouponStatus = "claimed"
)

// Coupon is a single-use promotional code. AssignedTo holds the requester
// identity (client IP) and is empty exactly while the coupon is available;
// admin force-edits are allowed to break that pairing.
type Coupon struct {
	Id         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Code       string             `json:"code" bson:"code"`
	Status     CouponStatus       `json:"status" bson:"status"`
	AssignedTo string             `json:"assignedTo,omitempty" bson:"assigned_to,omitempty"`
	CreatedAt  time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updated_at"`
}

// ClaimRecord is the claim-history projection of a claimed coupon.
type ClaimRecord struct {
	Code       string    `json:"code" bson:"code"`
	AssignedTo string    `json:"assignedTo" bson:"assigned_to"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updated_at"`
}

// CouponAdd is the payload for creating a coupon. Code may be omitted,
// in which case the server generates one.
type CouponAdd struct {
	Code string `json:"code" validate:"omitempty,min=3"`
}

func (c *CouponAdd) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

// CouponUpdate is a partial update: nil fields are left untouched.
// An update with no fields set is a no-op read.
type CouponUpdate struct {
	Status *CouponStatus `json:"status,omitempty" validate:"omitempty,oneof=available claimed"`
	Code   *string       `json:"code,omitempty" validate:"omitempty,min=3"`
}

func (u *CouponUpdate) Bind(_ *http.Request) error {
	return validate.Struct(u)
}

func (u *CouponUpdate) IsEmpty() bool {
	return u.Status == nil && u.Code == nil
}
