// Package token issues and verifies the HS256 bearer tokens that identify a session.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrAuthentication = errors.New("token verification failed")
	ErrTokenIssuance  = errors.New("token issuance failed")
)

const DefaultTTL = 7 * 24 * time.Hour

// Claims is the identity carried by a session token. UserID travels as the
// registered "sub" claim.
type Claims struct {
	UserID string `json:"-"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type jwtClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

func (i *Issuer) Issue(c Claims) (string, error) {
	const op = "token.Issue"
	if len(i.secret) == 0 {
		return "", fmt.Errorf("%s: %w: empty signing secret", op, ErrTokenIssuance)
	}
	if c.UserID == "" {
		return "", fmt.Errorf("%s: %w: missing subject", op, ErrTokenIssuance)
	}

	now := i.now()
	claims := jwtClaims{
		Email: c.Email,
		Role:  c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrTokenIssuance, err)
	}
	return signed, nil
}

func (i *Issuer) Verify(tokenStr string) (*Claims, error) {
	const op = "token.Verify"

	var claims jwtClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(_ *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	return &Claims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrTokenInvalid
	default:
		return ErrAuthentication
	}
}
