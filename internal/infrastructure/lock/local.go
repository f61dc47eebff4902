// Package lock implementa ports.Locker en proceso y sobre Redis.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/domain"
)

var _ ports.Locker = (*LocalLocker)(nil)

// LocalLocker lock por clave dentro de un solo proceso. Cada clave tiene un canal que se
// cierra al liberar; los que esperan compiten de nuevo cuando se cierra.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
	wait time.Duration
}

// NewLocalLocker crea el locker. wait acota la espera por clave; 0 espera lo que permita ctx.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{held: make(map[string]chan struct{}), wait: wait}
}

// Acquire bloquea key. Si se agota la espera devuelve domain.ErrConcurrentModification.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (ports.Unlock, error) {
	var timeout <-chan time.Time
	if l.wait > 0 {
		t := time.NewTimer(l.wait)
		defer t.Stop()
		timeout = t.C
	}
	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			ch = make(chan struct{})
			l.held[key] = ch
			l.mu.Unlock()
			return l.unlockFunc(key, ch), nil
		}
		l.mu.Unlock()

		select {
		case <-ch:
		case <-timeout:
			return nil, fmt.Errorf("%w: lock %s ocupado", domain.ErrConcurrentModification, key)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *LocalLocker) unlockFunc(key string, ch chan struct{}) ports.Unlock {
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			if l.held[key] == ch {
				delete(l.held, key)
			}
			l.mu.Unlock()
			close(ch)
		})
		return nil
	}
}
