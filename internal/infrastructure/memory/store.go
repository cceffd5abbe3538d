// Package memory implementa los puertos de inventario en memoria. Las escrituras se serializan
// y se confirman publicando una copia nueva del estado; las lecturas ven siempre una foto consistente.
package memory

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/text/cases"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// state foto inmutable del almacén una vez publicada.
type state struct {
	items  map[string]*entity.InventoryItem
	names  map[string]string // nombre plegado → id
	ledger []*entity.StockAdjustment
}

func (s *state) clone() *state {
	next := &state{
		items:  make(map[string]*entity.InventoryItem, len(s.items)),
		names:  make(map[string]string, len(s.names)),
		ledger: s.ledger[:len(s.ledger):len(s.ledger)],
	}
	for k, v := range s.items {
		next.items[k] = v
	}
	for k, v := range s.names {
		next.names[k] = v
	}
	return next
}

// Store almacén en memoria.
type Store struct {
	mu  sync.Mutex
	cur atomic.Pointer[state]
}

// New crea un almacén vacío.
func New() *Store {
	s := &Store{}
	s.cur.Store(&state{
		items: make(map[string]*entity.InventoryItem),
		names: make(map[string]string),
	})
	return s
}

// update ejecuta fn sobre un borrador y lo publica solo si fn no falla.
func (s *Store) update(ctx context.Context, fn func(draft *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	draft := s.cur.Load().clone()
	if err := fn(draft); err != nil {
		return err
	}
	s.cur.Store(draft)
	return nil
}

func (s *Store) snapshot() *state { return s.cur.Load() }

// Items repositorio de ítems fuera de transacción (cada escritura es atómica por sí sola).
func (s *Store) Items() repository.InventoryItemRepository {
	return &ItemRepo{store: s}
}

// Ledger repositorio del ledger fuera de transacción.
func (s *Store) Ledger() repository.StockAdjustmentRepository {
	return &LedgerRepo{store: s}
}

// Runner devuelve el TxRunner del almacén.
func (s *Store) Runner() *TxRunner {
	return &TxRunner{store: s}
}

// TxRunner ejecuta callbacks sobre un borrador aislado; si fn devuelve error el borrador se descarta.
type TxRunner struct {
	store *Store
}

// Run ver inventory.TxRunner. No es reentrante: fn no debe usar los repos de Store.Items/Ledger para escribir.
func (r *TxRunner) Run(ctx context.Context, fn func(
	itemRepo repository.InventoryItemRepository,
	ledgerRepo repository.StockAdjustmentRepository,
) error) error {
	return r.store.update(ctx, func(draft *state) error {
		return fn(&ItemRepo{tx: draft}, &LedgerRepo{tx: draft})
	})
}

var folder = cases.Fold()

func nameKey(name string) string {
	return folder.String(strings.TrimSpace(name))
}
