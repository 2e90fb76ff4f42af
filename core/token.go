package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long issued tokens stay valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenClaims embeds the registered claims and adds the user id so a
// verified token can be resolved back to the current user record.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// TokenService issues and verifies HS256 bearer tokens. The signing
// secret is injected so it can be rotated per process and varied in
// tests; rotating it invalidates every outstanding token at once.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	users  UserRepository

	// now is swappable for expiry boundary tests.
	now func() time.Time
}

func NewTokenService(secret []byte, ttl time.Duration, users UserRepository) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: secret, ttl: ttl, users: users, now: time.Now}
}

// Issue signs a token for the authenticated user. The username goes in
// the subject claim, the id in a custom claim; the hash never does.
func (s *TokenService) Issue(user User) (string, error) {
	now := s.now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: user.ID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the claims without
// touching the store.
func (s *TokenService) Verify(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate resolves a bearer token to the current user record. The
// token is a capability reference, not a snapshot: the record (and its
// favorites) is always re-fetched, and a deleted user fails with
// ErrPrincipalNotFound even while the token itself is still valid.
func (s *TokenService) Authenticate(tokenString string) (User, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return User{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	record, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return User{}, ErrInternal
	}
	if record == nil {
		return User{}, ErrPrincipalNotFound
	}
	return record.User(), nil
}
