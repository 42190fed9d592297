package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/chantier/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenBlacklist_AddToBlacklist(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	revokedJTI := uuid.NewString()
	otherJTI := uuid.NewString()

	require.NoError(t, blacklist.AddToBlacklist(ctx, revokedJTI, 1*time.Hour))

	isBlacklisted, err := blacklist.IsBlacklisted(ctx, revokedJTI)
	require.NoError(t, err)
	assert.True(t, isBlacklisted)

	isBlacklisted, err = blacklist.IsBlacklisted(ctx, otherJTI)
	require.NoError(t, err)
	assert.False(t, isBlacklisted)
}

func TestInMemoryTokenBlacklist_ExpiredEntriesAreDropped(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	jti := uuid.NewString()
	require.NoError(t, blacklist.AddToBlacklist(ctx, jti, 1*time.Millisecond))

	time.Sleep(10 * time.Millisecond)

	isBlacklisted, err := blacklist.IsBlacklisted(ctx, jti)
	require.NoError(t, err)
	assert.False(t, isBlacklisted)
}

func TestInMemoryTokenBlacklist_UserTokenInvalidation(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	conducteurID := "conducteur-" + uuid.NewString()
	issuedAnHourAgo := time.Now().Add(-1 * time.Hour)

	// no revocation yet
	invalidated, err := blacklist.IsUserTokenInvalidated(ctx, conducteurID, issuedAnHourAgo)
	require.NoError(t, err)
	assert.False(t, invalidated)

	// forced logout of every session
	require.NoError(t, blacklist.AddUserTokensToBlacklist(ctx, conducteurID, 1*time.Hour))

	invalidated, err = blacklist.IsUserTokenInvalidated(ctx, conducteurID, issuedAnHourAgo)
	require.NoError(t, err)
	assert.True(t, invalidated)

	// a token issued after the revocation stays valid
	issuedLater := time.Now().Add(1 * time.Second)
	time.Sleep(2 * time.Millisecond)
	invalidated, err = blacklist.IsUserTokenInvalidated(ctx, conducteurID, issuedLater)
	require.NoError(t, err)
	assert.False(t, invalidated)

	// another user's sessions are untouched
	invalidated, err = blacklist.IsUserTokenInvalidated(ctx, "chef-chantier-"+uuid.NewString(), issuedAnHourAgo)
	require.NoError(t, err)
	assert.False(t, invalidated)
}

func TestInMemoryTokenBlacklist_MultipleTokens(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	jtis := make([]string, 10)
	for i := range jtis {
		jtis[i] = fmt.Sprintf("session-%d-%s", i, uuid.NewString())
		require.NoError(t, blacklist.AddToBlacklist(ctx, jtis[i], 1*time.Hour))
	}

	for _, jti := range jtis {
		isBlacklisted, err := blacklist.IsBlacklisted(ctx, jti)
		require.NoError(t, err)
		assert.True(t, isBlacklisted, "token %s should be blacklisted", jti)
	}

	isBlacklisted, err := blacklist.IsBlacklisted(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, isBlacklisted)
}

func TestTokenBlacklist_Interfaces(t *testing.T) {
	var _ auth.TokenBlacklist = (*auth.InMemoryTokenBlacklist)(nil)
	var _ auth.TokenBlacklist = (*auth.RedisTokenBlacklist)(nil)
	var _ auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
}
