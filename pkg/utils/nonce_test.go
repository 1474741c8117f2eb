package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNonceRoundTrip(t *testing.T) {
	svc := NewNonceService("secret", time.Hour)

	nonce, err := svc.Create("u1", SortNonceAction)
	require.NoError(t, err)
	require.NotEmpty(t, nonce)

	assert.NoError(t, svc.Verify(nonce, "u1", SortNonceAction))
	// reusable for the lifetime of the page
	assert.NoError(t, svc.Verify(nonce, "u1", SortNonceAction))
}

func TestNonceRejections(t *testing.T) {
	svc := NewNonceService("secret", time.Hour)
	nonce, err := svc.Create("u1", SortNonceAction)
	require.NoError(t, err)

	tests := []struct {
		name   string
		svc    *NonceService
		nonce  string
		user   string
		action string
	}{
		{"missing", svc, "", "u1", SortNonceAction},
		{"garbage", svc, "not-a-token", "u1", SortNonceAction},
		{"other user", svc, nonce, "u2", SortNonceAction},
		{"other action", svc, nonce, "u1", "delete-post"},
		{"other secret", NewNonceService("different", time.Hour), nonce, "u1", SortNonceAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.svc.Verify(tt.nonce, tt.user, tt.action)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidNonce), "got %v", err)
		})
	}
}

func TestNonceExpires(t *testing.T) {
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewNonceService("secret", time.Hour)
	svc.now = fixedClock(issued)

	nonce, err := svc.Create("u1", SortNonceAction)
	require.NoError(t, err)

	svc.now = fixedClock(issued.Add(59 * time.Minute))
	assert.NoError(t, svc.Verify(nonce, "u1", SortNonceAction))

	svc.now = fixedClock(issued.Add(2 * time.Hour))
	assert.ErrorIs(t, svc.Verify(nonce, "u1", SortNonceAction), ErrInvalidNonce)
}

func TestSessionTokenIsNotANonce(t *testing.T) {
	jwtSvc := NewJWTService("secret")
	nonces := NewNonceService("secret", time.Hour)

	token, _, err := jwtSvc.GenerateAccessToken(testUser(), time.Hour)
	require.NoError(t, err)
	assert.ErrorIs(t, nonces.Verify(token, "u1", SortNonceAction), ErrInvalidNonce)

	nonce, err := nonces.Create("u1", SortNonceAction)
	require.NoError(t, err)
	_, err = jwtSvc.ValidateToken(nonce)
	assert.Error(t, err)
}

func TestNonceServiceDefaultTTL(t *testing.T) {
	assert.Equal(t, 12*time.Hour, NewNonceService("s", 0).TTL())
	assert.Equal(t, time.Minute, NewNonceService("s", time.Minute).TTL())
}
