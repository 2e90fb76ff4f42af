package core

import (
	"context"
	"log"
	"strings"
	"time"
)

// storeTimeout bounds every credential-store round trip made outside a
// request context. A timeout is an internal failure, not an auth failure.
const storeTimeout = 3 * time.Second

// RepositoryAuthService authenticates credentials against the user store.
type RepositoryAuthService struct {
	users UserRepository
}

func NewRepositoryAuthService(users UserRepository) *RepositoryAuthService {
	return &RepositoryAuthService{users: users}
}

// Authenticate looks the user up by exact username and verifies the
// password against the stored bcrypt hash. "No such user" and "wrong
// password" both come back as ErrInvalidCredentials so callers cannot
// enumerate usernames; the log line is the only place they differ.
func (s *RepositoryAuthService) Authenticate(username, password string) (User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	record, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		log.Printf("auth: user lookup failed for %q: %v", username, err)
		return User{}, ErrInternal
	}
	if record == nil {
		log.Printf("auth: unknown username %q", username)
		return User{}, ErrInvalidCredentials
	}

	if !CheckPassword(password, record.PasswordHash) {
		log.Printf("auth: wrong password for %q", username)
		return User{}, ErrInvalidCredentials
	}
	return record.User(), nil
}
