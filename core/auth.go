package core

import (
	"errors"
	"time"
)

// User represents an authenticated principal returned to handlers.
// It never carries the password hash.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Birthday  time.Time `json:"birthday"`
	Favorites []string  `json:"favorite_movies"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	// ErrInvalidCredentials is returned when username/password is wrong.
	// Unknown username and wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned for malformed tokens or bad signatures.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token's exp claim has passed.
	ErrExpiredToken = errors.New("token expired")

	// ErrPrincipalNotFound is returned when a valid token references a
	// user that no longer exists.
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrInternal covers store or hashing failures. It must never surface
	// to clients as an authentication failure.
	ErrInternal = errors.New("internal error")
)

// AuthService defines credential authentication behaviour.
type AuthService interface {
	Authenticate(username, password string) (User, error)
}

// TokenAuthenticator verifies a bearer token and resolves the current
// user record it refers to.
type TokenAuthenticator interface {
	Authenticate(tokenString string) (User, error)
}
