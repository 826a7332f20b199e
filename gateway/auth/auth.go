// Package auth issues and verifies the HS256 bearer tokens that identify API
// callers. The token subject is the caller's bech32 address.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"creditpool/crypto"
)

var (
	ErrSecretRequired = errors.New("auth: signing secret required")
	ErrInvalidToken   = errors.New("auth: invalid token")
)

const defaultLeeway = 2 * time.Minute

// Verifier validates bearer tokens.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// NewVerifier returns a verifier requiring issuer and audience when set.
func NewVerifier(secret, issuer, audience string, leeway time.Duration) (*Verifier, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, ErrSecretRequired
	}
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	return &Verifier{
		secret:   []byte(trimmed),
		issuer:   strings.TrimSpace(issuer),
		audience: strings.TrimSpace(audience),
		leeway:   leeway,
		now:      time.Now,
	}, nil
}

// SetClock overrides the verification clock.
func (v *Verifier) SetClock(now func() time.Time) {
	if now != nil {
		v.now = now
	}
}

// Verify checks signature, expiry, issuer and audience, then returns the
// address named by the subject claim.
func (v *Verifier) Verify(tokenString string) (crypto.Address, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return crypto.Address{}, ErrInvalidToken
	}
	subject, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return crypto.Address{}, fmt.Errorf("%w: subject required", ErrInvalidToken)
	}
	addr, err := crypto.DecodeAddress(subject)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%w: subject: %v", ErrInvalidToken, err)
	}
	return addr, nil
}

// IssueRequest describes a token to mint.
type IssueRequest struct {
	Secret   string
	Issuer   string
	Audience string
	Subject  crypto.Address
	TTL      time.Duration
	Now      time.Time
}

// Issue signs a token for req.Subject. Each token carries a random jti.
func Issue(req IssueRequest) (string, error) {
	secret := strings.TrimSpace(req.Secret)
	if secret == "" {
		return "", ErrSecretRequired
	}
	if req.Subject.IsZero() {
		return "", fmt.Errorf("auth: subject required")
	}
	if req.TTL <= 0 {
		return "", fmt.Errorf("auth: ttl must be positive")
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   req.Subject.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(req.TTL)),
	}
	if issuer := strings.TrimSpace(req.Issuer); issuer != "" {
		claims.Issuer = issuer
	}
	if audience := strings.TrimSpace(req.Audience); audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
