package auth

import (
	"context"
	"testing"
	"time"

	"socialnet/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapBlacklist struct {
	revoked map[string]bool
}

func (b *mapBlacklist) Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error {
	b.revoked[jti] = true
	return nil
}

func (b *mapBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return b.revoked[jti], nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecretKey: "unit-test-secret", JWTExpiry: time.Hour}
}

func TestGenerateAndValidateToken(t *testing.T) {
	ctx := context.Background()
	cfg := testAuthConfig()

	token, err := GenerateToken(42, "alice", cfg)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(ctx, token, cfg.JWTSecretKey, nil)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID, "every token carries a jti")
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(cfg.JWTExpiry), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	ctx := context.Background()
	token, err := GenerateToken(42, "alice", testAuthConfig())
	require.NoError(t, err)

	_, err = ValidateToken(ctx, token, "a-different-secret", nil)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	ctx := context.Background()
	cfg := config.AuthConfig{JWTSecretKey: "unit-test-secret", JWTExpiry: -time.Minute}
	token, err := GenerateToken(42, "alice", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(ctx, token, cfg.JWTSecretKey, nil)
	assert.Error(t, err)
}

func TestValidateTokenRejectsRevoked(t *testing.T) {
	ctx := context.Background()
	cfg := testAuthConfig()
	blacklist := &mapBlacklist{revoked: make(map[string]bool)}

	token, err := GenerateToken(42, "alice", cfg)
	require.NoError(t, err)

	claims, err := ValidateToken(ctx, token, cfg.JWTSecretKey, blacklist)
	require.NoError(t, err)

	require.NoError(t, blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time))

	_, err = ValidateToken(ctx, token, cfg.JWTSecretKey, blacklist)
	assert.Error(t, err)
}

func TestTokensCarryUniqueJTIs(t *testing.T) {
	ctx := context.Background()
	cfg := testAuthConfig()

	t1, err := GenerateToken(1, "alice", cfg)
	require.NoError(t, err)
	t2, err := GenerateToken(1, "alice", cfg)
	require.NoError(t, err)

	c1, err := ValidateToken(ctx, t1, cfg.JWTSecretKey, nil)
	require.NoError(t, err)
	c2, err := ValidateToken(ctx, t2, cfg.JWTSecretKey, nil)
	require.NoError(t, err)

	assert.NotEqual(t, c1.ID, c2.ID)
}
