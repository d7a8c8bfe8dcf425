package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"attendancewizard/internal/model"
)

// Kind is the subject kind carried in a bearer token.
type Kind string

const (
	KindStudent Kind = "student"
	KindAdmin   Kind = "admin"
)

// Claims represents JWT payload.
type Claims struct {
	Kind Kind `json:"type"`
	jwt.RegisteredClaims
}

// Issuer signs and validates HS256 bearer tokens.
type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer; ttl is the default lifetime of issued tokens.
func NewIssuer(key, issuer string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Issuer{key: []byte(key), issuer: issuer, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for issuing and validating.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue signs a token for subject with the default TTL.
func (i *Issuer) Issue(subject string, kind Kind) (string, time.Time, error) {
	return i.IssueTTL(subject, kind, i.ttl)
}

// IssueTTL signs a token for subject expiring after ttl.
func (i *Issuer) IssueTTL(subject string, kind Kind, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(ttl)
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse validates a token and returns its subject. Any failure, including a
// token issued for a different kind, yields model.ErrUnauthenticated.
func (i *Issuer) Parse(tokenStr string, want Kind) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.key, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrUnauthenticated, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", model.ErrUnauthenticated
	}
	if claims.Kind != want {
		return "", fmt.Errorf("%w: token kind %q", model.ErrUnauthenticated, claims.Kind)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: %v", model.ErrUnauthenticated, errors.New("missing subject"))
	}
	return claims.Subject, nil
}
