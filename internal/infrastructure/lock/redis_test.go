package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/infrastructure/lock"
)

func newRedisLocker(t *testing.T, wait time.Duration) (*lock.RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l, err := lock.NewRedisLocker(client, time.Second, wait)
	require.NoError(t, err)
	return l, mr
}

func TestRedisLocker_AdquiereYLibera(t *testing.T) {
	l, mr := newRedisLocker(t, 50*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "ledger:balance:t1:1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("ledger:balance:t1:1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("ledger:balance:t1:1"))
}

func TestRedisLocker_OcupadoDevuelveModificacionConcurrente(t *testing.T) {
	l, _ := newRedisLocker(t, 30*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	defer func() { _ = unlock(ctx) }()

	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
}

func TestRedisLocker_NoLiberaLockAjeno(t *testing.T) {
	l, mr := newRedisLocker(t, 30*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "k")
	require.NoError(t, err)

	// Simula expiración y adquisición por otro proceso.
	require.NoError(t, mr.Set("k", "otro-dueño"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "otro-dueño", got)
}

func TestRedisLocker_ReintentaHastaQueSeLibere(t *testing.T) {
	l, mr := newRedisLocker(t, time.Second)
	ctx := context.Background()
	require.NoError(t, mr.Set("k", "otro"))

	go func() {
		time.Sleep(30 * time.Millisecond)
		mr.Del("k")
	}()

	unlock, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func TestRedisLocker_RenuevaElTTLMientrasEstaTomado(t *testing.T) {
	l, mr := newRedisLocker(t, 50*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "k")
	require.NoError(t, err)

	// Un tramo largo consume casi todo el TTL de un segundo.
	mr.FastForward(900 * time.Millisecond)
	require.Eventually(t, func() bool { return mr.TTL("k") > 500*time.Millisecond },
		2*time.Second, 20*time.Millisecond, "el TTL debe renovarse")
	mr.FastForward(900 * time.Millisecond)
	assert.True(t, mr.Exists("k"), "sigue tomado pasado el TTL original")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("k"))
}

func TestRedisLocker_NoRenuevaLockAjeno(t *testing.T) {
	l, mr := newRedisLocker(t, 50*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	defer func() { _ = unlock(ctx) }()

	require.NoError(t, mr.Set("k", "otro-dueño"))
	mr.SetTTL("k", 200*time.Millisecond)
	time.Sleep(500 * time.Millisecond)

	assert.LessOrEqual(t, mr.TTL("k"), 200*time.Millisecond)
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "otro-dueño", got)
}

func TestNewRedisLocker_SinCliente(t *testing.T) {
	_, err := lock.NewRedisLocker(nil, 0, 0)
	assert.Error(t, err)
}
