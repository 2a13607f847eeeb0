package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenTTL is the lifetime of an issued session token.
const SessionTokenTTL = time.Hour

var (
	// ErrInvalidToken is returned for malformed tokens or bad signatures.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a well-formed token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// TokenIssuer mints and verifies HS256 session tokens. Tokens are not
// revocable; they stay valid until they expire.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    SessionTokenTTL,
		now:    time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	clone := *i
	clone.now = now
	return &clone
}

// Issue returns a signed token whose subject is userID.
func (i *TokenIssuer) Issue(userID string) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify checks signature and expiry and returns the embedded user id.
func (i *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return i.secret, nil
	},
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}
