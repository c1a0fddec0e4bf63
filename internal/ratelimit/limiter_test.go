package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLimiter(client).WithLimits(3, time.Minute, 30*time.Second), mr
}

func TestIPRateLimit_ExceededAfterLimit(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "1.2.3.4", "sign-in")
		require.NoError(t, err)
		assert.False(t, exceeded, "request %d", i)
		require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "1.2.3.4", "sign-in"))
	}

	exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "1.2.3.4", "sign-in")
	require.NoError(t, err)
	assert.True(t, exceeded)

	// other purposes and IPs have their own windows
	exceeded, err = l.CheckIPRateLimitWithPurpose(ctx, "1.2.3.4", "sign-up")
	require.NoError(t, err)
	assert.False(t, exceeded)
	exceeded, err = l.CheckIPRateLimitWithPurpose(ctx, "5.6.7.8", "sign-in")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestIPRateLimit_WindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "1.2.3.4", "sign-in"))
	}
	assert.Equal(t, time.Minute, mr.TTL(ipKey("1.2.3.4", "sign-in")))

	mr.FastForward(time.Minute + time.Second)

	exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "1.2.3.4", "sign-in")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestEmailCooldown(t *testing.T) {
	l, mr := newTestLimiter(t)
	ctx := context.Background()

	on, err := l.CheckEmailCooldown(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, l.SetEmailCooldown(ctx, "Alice@Example.com "))

	on, err = l.CheckEmailCooldown(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, on)

	mr.FastForward(31 * time.Second)

	on, err = l.CheckEmailCooldown(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, on)
}

func TestLimiter_RedisDown(t *testing.T) {
	l, mr := newTestLimiter(t)
	mr.Close()

	_, err := l.CheckIPRateLimitWithPurpose(context.Background(), "1.2.3.4", "sign-in")
	assert.Error(t, err)
}

func TestGuard_AllowIP(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.AllowIP(ctx, "1.2.3.4", "sign-in"), "request %d", i)
	}
	assert.ErrorIs(t, l.AllowIP(ctx, "1.2.3.4", "sign-in"), ErrTooManyRequests)
	assert.NoError(t, l.AllowIP(ctx, "1.2.3.4", "forget-password"))
}

func TestGuard_CooldownStartsOnlyAfterSend(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	require.NoError(t, l.AllowEmail(ctx, "alice@example.com"))
	// a failed delivery never calls EmailSent, so a retry is allowed
	require.NoError(t, l.AllowEmail(ctx, "alice@example.com"))

	l.EmailSent(ctx, "alice@example.com")
	assert.ErrorIs(t, l.AllowEmail(ctx, "alice@example.com"), ErrCooldownActive)
}

func TestGuard_NilLimiterAllowsEverything(t *testing.T) {
	var l *Limiter
	ctx := context.Background()

	assert.NoError(t, l.AllowIP(ctx, "1.2.3.4", "sign-in"))
	assert.NoError(t, l.AllowEmail(ctx, "alice@example.com"))
	l.EmailSent(ctx, "alice@example.com")
}

func TestGuard_RedisDownFailsOpen(t *testing.T) {
	l, mr := newTestLimiter(t)
	mr.Close()

	assert.NoError(t, l.AllowIP(context.Background(), "1.2.3.4", "sign-in"))
	assert.NoError(t, l.AllowEmail(context.Background(), "alice@example.com"))
}
