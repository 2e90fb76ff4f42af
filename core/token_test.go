package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.add("alice01", "Secret123!", "alice@example.com")
	svc := NewTokenService([]byte("test-secret"), DefaultTokenTTL, repo)

	token, err := svc.Issue(alice.User())
	require.NoError(t, err)

	resolved, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, resolved.ID)
	assert.Equal(t, "alice01", resolved.Username)
}

func TestTokenVerificationIsIdempotent(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.add("alice01", "Secret123!", "alice@example.com")
	svc := NewTokenService([]byte("test-secret"), DefaultTokenTTL, repo)

	token, err := svc.Issue(alice.User())
	require.NoError(t, err)

	first, err := svc.Authenticate(token)
	require.NoError(t, err)
	second, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTokenReflectsCurrentPrincipalState(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.add("alice01", "Secret123!", "alice@example.com")
	svc := NewTokenService([]byte("test-secret"), DefaultTokenTTL, repo)

	token, err := svc.Issue(alice.User())
	require.NoError(t, err)

	// favorites added after issuance show up on the next resolution
	require.NoError(t, repo.AddFavorite(context.Background(), alice.ID, "movie-1"))
	resolved, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, []string{"movie-1"}, resolved.Favorites)
}

func TestTokenExpiryBoundary(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.add("alice01", "Secret123!", "alice@example.com")

	issuedAt := time.Now()
	svc := NewTokenService([]byte("test-secret"), DefaultTokenTTL, repo)
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.Issue(alice.User())
	require.NoError(t, err)

	// one second before the deadline the token still works
	svc.now = func() time.Time { return issuedAt.Add(DefaultTokenTTL - time.Second) }
	_, err = svc.Authenticate(token)
	require.NoError(t, err)

	// one second after, it is expired (and only expired)
	svc.now = func() time.Time { return issuedAt.Add(DefaultTokenTTL + time.Second) }
	_, err = svc.Authenticate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTamperedTokenRejected(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.add("alice01", "Secret123!", "alice@example.com")
	svc := NewTokenService([]byte("test-secret"), DefaultTokenTTL, repo)

	token, err := svc.Issue(alice.User())
	require.NoError(t, err)

	// flip one byte of the signature
	tampered := []byte(token)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}
	_, err = svc.Authenticate(string(tampered))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenFromRotatedSecretRejected(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.add("alice01", "Secret123!", "alice@example.com")

	issuer := NewTokenService([]byte("old-secret"), DefaultTokenTTL, repo)
	token, err := issuer.Issue(alice.User())
	require.NoError(t, err)

	rotated := NewTokenService([]byte("new-secret"), DefaultTokenTTL, repo)
	_, err = rotated.Authenticate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMalformedTokenRejected(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), DefaultTokenTTL, newFakeUserRepo())
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := svc.Authenticate(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", raw)
	}
}

func TestDeletedPrincipalFailsResolution(t *testing.T) {
	repo := newFakeUserRepo()
	alice := repo.add("alice01", "Secret123!", "alice@example.com")
	svc := NewTokenService([]byte("test-secret"), DefaultTokenTTL, repo)

	token, err := svc.Issue(alice.User())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(context.Background(), alice.ID))
	_, err = svc.Authenticate(token)
	assert.ErrorIs(t, err, ErrPrincipalNotFound)
}
