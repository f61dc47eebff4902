package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/domain"
)

var _ ports.Locker = (*RedisLocker)(nil)

const (
	defaultLockTTL     = 30 * time.Second
	defaultLockWait    = 5 * time.Second
	initialLockBackoff = 10 * time.Millisecond
	maxLockBackoff     = 250 * time.Millisecond
)

var errLockHeld = errors.New("lock ocupado")

// releaseScript borra la clave solo si el dueño sigue siendo el mismo.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript renueva el TTL solo si el dueño sigue siendo el mismo.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker lock distribuido con SET NX + TTL. El valor es un uuid por adquisición, así
// un proceso nunca libera el lock de otro aunque el suyo haya expirado. Mientras el lock está tomado
// el TTL se renueva en segundo plano.
type RedisLocker struct {
	client redis.Cmdable
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker construye el locker. ttl protege contra dueños caídos; wait acota Acquire.
func NewRedisLocker(client redis.Cmdable, ttl, wait time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("cliente redis requerido para el lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &RedisLocker{client: client, ttl: ttl, wait: wait}, nil
}

// Acquire reintenta SET NX con backoff exponencial hasta obtener el lock o agotar la espera.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (ports.Unlock, error) {
	owner := uuid.NewString()
	backoff := retry.NewExponential(initialLockBackoff)
	backoff = retry.WithCappedDuration(maxLockBackoff, backoff)
	backoff = retry.WithJitterPercent(10, backoff)
	backoff = retry.WithMaxDuration(l.wait, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("setnx %s: %w", key, err)
		}
		if !ok {
			return retry.RetryableError(errLockHeld)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errLockHeld) {
			return nil, fmt.Errorf("%w: lock %s ocupado", domain.ErrConcurrentModification, key)
		}
		return nil, err
	}

	stop := l.keepAlive(key, owner)
	return func(ctx context.Context) error {
		stop()
		if err := releaseScript.Run(ctx, l.client, []string{key}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("liberar lock %s: %w", key, err)
		}
		return nil
	}, nil
}

// keepAlive extiende el TTL cada tercio de su duración hasta que se libere el lock o la clave
// cambie de dueño. Un error de red no detiene la renovación; el siguiente tick vuelve a intentar.
func (l *RedisLocker) keepAlive(key, owner string) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := extendScript.Run(ctx, l.client, []string{key}, owner, l.ttl.Milliseconds()).Int()
				if err == nil && n == 0 {
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
