package entity

import (
	"net/http"

	"coupondrop/lib/validate"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Admin is a privileged account able to manage the coupon inventory.
// Password always holds a bcrypt hash; accounts are seeded out-of-band
// with the server's -admin flag.
type Admin struct {
	Id       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Username string             `json:"username" bson:"username"`
	Password string             `json:"-" bson:"password"`
}

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c *Credentials) Bind(_ *http.Request) error {
	return validate.Struct(c)
}
