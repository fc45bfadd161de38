// Package token issues and verifies the signed links that let customers
// view quotes and invoices without an account. A token binds exactly one
// lead, one track, and optionally one invoice revision; it is never valid
// for the other track.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gulfsetup/crm-api/internal/domain"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, and
	// track/claim mismatches.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned for a correctly signed token past its
	// expiry. Callers must not leak the distinction to customers.
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is the verified content of a customer token
type Claims struct {
	LeadID uuid.UUID
	Track  domain.Track

	// Version pins the token to a specific invoice revision; 0 means
	// "the lead's current invoice".
	Version   int
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	Track   string `json:"trk"`
	Version int    `json:"ver,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies customer tokens. Verification is a pure
// function of the secret and the token string; no store access.
type Service struct {
	secret []byte
	expiry time.Duration
}

// NewService creates a token service. expiry is the fixed token lifetime.
func NewService(secret string, expiry time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	return &Service{secret: []byte(secret), expiry: expiry}, nil
}

// Issue produces a signed, time-boxed token for one lead and track.
// version > 0 pins the token to that invoice revision.
func (s *Service) Issue(leadID uuid.UUID, track domain.Track, version int) (string, error) {
	if !track.IsValid() {
		return "", fmt.Errorf("%w: unknown track %q", ErrInvalidToken, track)
	}

	now := time.Now()
	claims := tokenClaims{
		Track:   string(track),
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   leadID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the bound claims.
// Re-verifying the same token yields the same result until it expires.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	leadID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	track := domain.Track(claims.Track)
	if !track.IsValid() {
		return nil, fmt.Errorf("%w: bad track claim", ErrInvalidToken)
	}

	out := &Claims{
		LeadID:  leadID,
		Track:   track,
		Version: claims.Version,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
