package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	cfg := JWTConfig{SecretKey: "s3cret", Issuer: "diagramsync"}
	generator, err := NewJWTGenerator(cfg, time.Hour)
	require.NoError(t, err)
	validator, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	token, err := generator.GenerateToken("alice", "Alice")
	require.NoError(t, err)

	claims, err := validator.ValidateToken("Bearer " + token)

	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Identity)
	assert.Equal(t, "Alice", claims.Name())
}

func TestJWT_Rejections(t *testing.T) {
	validator, err := NewJWTValidator(JWTConfig{SecretKey: "s3cret", Issuer: "diagramsync"})
	require.NoError(t, err)

	wrongKey, _ := NewJWTGenerator(JWTConfig{SecretKey: "other", Issuer: "diagramsync"}, time.Hour)
	expired, _ := NewJWTGenerator(JWTConfig{SecretKey: "s3cret", Issuer: "diagramsync"}, -time.Minute)
	wrongIssuer, _ := NewJWTGenerator(JWTConfig{SecretKey: "s3cret", Issuer: "someone-else"}, time.Hour)

	tests := []struct {
		name      string
		generator *JWTGenerator
		want      error
	}{
		{"wrong key", wrongKey, ErrInvalidSignature},
		{"expired", expired, ErrExpiredToken},
		{"wrong issuer", wrongIssuer, ErrInvalidClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.generator.GenerateToken("alice", "")
			require.NoError(t, err)

			_, err = validator.ValidateToken(token)

			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = validator.ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	limiter := NewSlidingWindowLimiterWithClock(2, time.Minute, func() time.Time { return now })

	allowed, _ := limiter.Allow(ctx, "c1")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "c1")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "c1")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow(ctx, "c2")
	assert.True(t, allowed, "keys are independent")

	now = now.Add(61 * time.Second)
	allowed, _ = limiter.Allow(ctx, "c1")
	assert.True(t, allowed, "window slides")
}

func TestSlidingWindowLimiter_ZeroIsUnlimited(t *testing.T) {
	limiter := NewSlidingWindowLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		allowed, err := limiter.Allow(context.Background(), "c1")
		require.NoError(t, err)
		require.True(t, allowed)
	}
}
