// Package memory implementa los puertos de persistencia en memoria (tests y modo desarrollo).
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

var _ ports.TxRunner = (*Store)(nil)

type productKey struct {
	tenant string
	id     int64
}

type balanceKey struct {
	tenant  string
	product int64
	date    time.Time
}

type scanKey struct {
	session int64
	tag     string
}

// state datos del store. Los valores guardados nunca se mutan en sitio: cada escritura
// reemplaza el puntero, así una copia superficial sirve de snapshot para el rollback.
type state struct {
	movements      []*entity.MovementEvent
	balances       map[balanceKey]*entity.DailyBalance
	products       map[productKey]*entity.Product
	transfers      map[int64]*entity.TransferRequest
	sessions       map[int64]*entity.VerificationSession
	scans          map[int64][]entity.VerificationScan
	scanned        map[scanKey]bool
	nextMovementID int64
	nextTransferID int64
	nextSessionID  int64
}

func newState() *state {
	return &state{
		balances:  make(map[balanceKey]*entity.DailyBalance),
		products:  make(map[productKey]*entity.Product),
		transfers: make(map[int64]*entity.TransferRequest),
		sessions:  make(map[int64]*entity.VerificationSession),
		scans:     make(map[int64][]entity.VerificationScan),
		scanned:   make(map[scanKey]bool),
	}
}

func (s *state) clone() *state {
	c := *s
	c.movements = slices.Clone(s.movements)
	c.balances = maps.Clone(s.balances)
	c.products = maps.Clone(s.products)
	c.transfers = maps.Clone(s.transfers)
	c.sessions = maps.Clone(s.sessions)
	c.scans = make(map[int64][]entity.VerificationScan, len(s.scans))
	for k, v := range s.scans {
		c.scans[k] = slices.Clone(v)
	}
	c.scanned = maps.Clone(s.scanned)
	return &c
}

// Store guarda todo en memoria. Las transacciones se serializan con un mutex global
// y se deshacen restaurando el snapshot tomado al iniciar.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

// SetClock reemplaza el reloj usado para RecordedAt y demás marcas del store.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Repositories devuelve repositorios fuera de transacción; cada llamada toma el lock del store.
func (s *Store) Repositories() repository.Repositories {
	return s.repos(s.lock)
}

// Run ejecuta fn con repositorios atados a una transacción en memoria.
func (s *Store) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(s.repos(noLock)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

func noLock() func() { return func() {} }

func (s *Store) repos(lock func() func()) repository.Repositories {
	b := base{store: s, lock: lock}
	return repository.Repositories{
		Movements:     &MovementRepo{base: b},
		Balances:      &DailyBalanceRepo{base: b},
		Products:      &ProductRepo{base: b},
		Transfers:     &TransferRepo{base: b},
		Verifications: &VerificationRepo{base: b},
	}
}

// base comparte el store y la estrategia de lock entre los repositorios.
type base struct {
	store *Store
	lock  func() func()
}

// state se lee siempre con el lock tomado: Run puede reemplazarlo al hacer rollback.
func (b base) state() *state { return b.store.st }
