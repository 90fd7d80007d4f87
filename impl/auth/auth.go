package auth

import (
	"fmt"
	"time"

	"coupondrop/entity"
	"coupondrop/lib/clock"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type Database interface {
	GetAdmin(username string) (*entity.Admin, error)
}

// Auth is the admin session manager: bcrypt credential check on login,
// HS256 tokens carrying the admin id, verified against the injected clock.
type Auth struct {
	db     Database
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func New(db Database, secret string, ttl time.Duration, clk clock.Clock) *Auth {
	return &Auth{
		db:     db,
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clk,
	}
}

// Login verifies the credentials and issues a signed session token.
// Unknown username and wrong password collapse into ErrInvalidCredentials.
func (a *Auth) Login(username, password string) (string, error) {
	if a.db == nil {
		return "", fmt.Errorf("database not connected")
	}
	admin, err := a.db.GetAdmin(username)
	if err != nil {
		return "", err
	}
	if admin == nil {
		return "", entity.ErrInvalidCredentials
	}
	if err = bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return "", entity.ErrInvalidCredentials
	}

	now := a.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   admin.Id.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature and expiry and returns the admin id the
// token was issued for. Any defect maps to ErrInvalidToken.
func (a *Auth) VerifyToken(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(_ *jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return "", entity.ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", entity.ErrInvalidToken
	}
	return claims.Subject, nil
}
