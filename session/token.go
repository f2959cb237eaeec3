// Package session issues and verifies the signed claims blob that acts as
// the session: nothing is stored server side, the token is the session.
package session

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Lifetime is fixed: invalidation happens by expiry or by the client
// dropping the cookie, there is no revocation list.
const Lifetime = 7 * 24 * time.Hour

type (
	Claims struct {
		Email string `json:"email"`
		jwt.RegisteredClaims
	}

	// Status is the internal, tagged outcome of a verification. Boundaries
	// that must not distinguish failure modes go through Decode instead.
	Status int

	Issuer struct {
		secret []byte
		now    func() time.Time
	}
)

const (
	Valid Status = iota
	Expired
	Invalid
	Malformed
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case Invalid:
		return "invalid"
	case Malformed:
		return "malformed"
	}
	return "unknown"
}

func NewIssuer(secret []byte) *Issuer {
	return &Issuer{secret: secret, now: time.Now}
}

// NewIssuerAt behaves like NewIssuer with an injectable clock, which the
// expiry-boundary tests need.
func NewIssuerAt(secret []byte, now func() time.Time) *Issuer {
	return &Issuer{secret: secret, now: now}
}

// UserID returns the numeric id encoded in the subject claim.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Issue signs a token for the given user, valid for Lifetime.
func (i *Issuer) Issue(userID int64, email string) (string, error) {
	now := i.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Lifetime)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", errors.New("unable to sign session token")
	}
	return token, nil
}

// Verify checks signature and expiry and reports which of the two failed.
// Only logging should ever look at the distinction.
func (i *Issuer) Verify(token string) (*Claims, Status) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, Expired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, Malformed
	case err != nil, !parsed.Valid:
		return nil, Invalid
	}
	return claims, Valid
}

// Decode collapses every failure mode into nil. Anything that answers to a
// client must use this one so expired and forged tokens are
// indistinguishable from the outside.
func (i *Issuer) Decode(token string) *Claims {
	claims, status := i.Verify(token)
	if status != Valid {
		return nil
	}
	return claims
}
