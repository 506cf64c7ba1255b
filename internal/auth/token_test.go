package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken(&domain.User{ID: "u-1", Role: domain.RoleAgent})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, domain.RoleAgent, claims.Role)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", 5).GenerateToken(&domain.User{ID: "u-1", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = NewTokenManager("two", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.GenerateToken(&domain.User{ID: "u-1", Role: domain.RoleUser})
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}
