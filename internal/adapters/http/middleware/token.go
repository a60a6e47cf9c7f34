package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken wraps bearer token parsing and validation errors.
var ErrInvalidToken = errors.New("invalid bearer token")

// DefaultTokenTTL is used when NewTokenIssuer is given a non-positive TTL.
const DefaultTokenTTL = 12 * time.Hour

// tokenClaims is the JWT payload of an API token.
type tokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. now may be nil.
// PRE: secret is non-empty
func NewTokenIssuer(secret []byte, issuer string, ttl time.Duration, now func() time.Time) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: secret, issuer: issuer, ttl: ttl, now: now}
}

// Issue signs a token for sess.
// POST: returns the compact token and its expiry
func (t *TokenIssuer) Issue(sess Session) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := tokenClaims{
		Email: sess.Email,
		Name:  sess.Name,
		Role:  sess.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.AccountID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse validates a token and returns the session it carries.
// POST: errors wrap ErrInvalidToken
func (t *TokenIssuer) Parse(raw string) (Session, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.Role == "" {
		return Session{}, ErrInvalidToken
	}
	var issued time.Time
	if claims.IssuedAt != nil {
		issued = claims.IssuedAt.Time
	}
	return Session{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      claims.Role,
		CreatedAt: issued,
		Via:       ViaBearer,
	}, nil
}
