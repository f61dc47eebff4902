package ports

import (
	"context"
	"fmt"
)

// Unlock libera un lock adquirido. Debe llamarse una sola vez.
type Unlock func(ctx context.Context) error

// Locker lock exclusivo por clave (local o distribuido). Acquire espera hasta obtenerlo,
// hasta que se agote su propio tiempo de espera o hasta que ctx se cancele.
type Locker interface {
	Acquire(ctx context.Context, key string) (Unlock, error)
}

// ProductLockKey clave de serialización del agregador por (tenant, producto).
func ProductLockKey(tenantID string, productID int64) string {
	return fmt.Sprintf("ledger:balance:%s:%d", tenantID, productID)
}
