package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

var _ inventory.RollbackGuard = (*RollbackGuard)(nil)

// RollbackGuard candado de rollback por transacción dentro de un solo proceso.
type RollbackGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewRollbackGuard crea el candado.
func NewRollbackGuard() *RollbackGuard {
	return &RollbackGuard{active: make(map[string]struct{})}
}

// Acquire falla con domain.ErrRollbackInProgress si la transacción ya está tomada.
func (g *RollbackGuard) Acquire(ctx context.Context, transactionID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[transactionID]; busy {
		return nil, domain.ErrRollbackInProgress
	}
	g.active[transactionID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, transactionID)
			g.mu.Unlock()
		})
	}, nil
}
