package inventory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fixture arma el motor y el coordinador sobre el almacén en memoria.
type fixture struct {
	store  *memory.Store
	runner inventory.TxRunner
	engine *inventory.AdjustStockUseCase
	items  *inventory.ItemUseCase
	orders *inventory.OrderDeductionUseCase
	audit  *inventory.AuditQueryUseCase
	events *recordingPublisher
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	runner func(inner inventory.TxRunner) inventory.TxRunner
	guard  inventory.RollbackGuard
	cfg    inventory.OrderDeductionConfig
}

func withRunner(wrap func(inner inventory.TxRunner) inventory.TxRunner) fixtureOption {
	return func(c *fixtureConfig) { c.runner = wrap }
}

func withMode(mode inventory.BatchMode, rollback bool) fixtureOption {
	return func(c *fixtureConfig) { c.cfg = inventory.OrderDeductionConfig{Mode: mode, RollbackEnabled: rollback} }
}

func withGuard(g inventory.RollbackGuard) fixtureOption {
	return func(c *fixtureConfig) { c.guard = g }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	store := memory.New()
	conf := fixtureConfig{
		guard: memory.NewRollbackGuard(),
		cfg:   inventory.OrderDeductionConfig{Mode: inventory.BatchModeAtomic, RollbackEnabled: true},
	}
	for _, o := range opts {
		o(&conf)
	}
	var runner inventory.TxRunner = store.Runner()
	if conf.runner != nil {
		runner = conf.runner(runner)
	}
	log := logger.Nop()
	events := &recordingPublisher{}
	engine := inventory.NewAdjustStockUseCase(runner, store.Items(), events, log)
	return &fixture{
		store:  store,
		runner: runner,
		engine: engine,
		items:  inventory.NewItemUseCase(runner, store.Items(), engine, log),
		orders: inventory.NewOrderDeductionUseCase(runner, store.Items(), store.Ledger(), engine, conf.guard, conf.cfg, log),
		audit:  inventory.NewAuditQueryUseCase(store.Items(), store.Ledger()),
		events: events,
	}
}

// addItem da de alta un ítem con stock inicial (queda en el ledger como correction).
func (f *fixture) addItem(t *testing.T, in inventory.CreateItemInput) *entity.InventoryItem {
	t.Helper()
	if in.MaxStock.IsZero() {
		in.MaxStock = dec("1000")
	}
	if in.PerformedBy == "" {
		in.PerformedBy = "tester"
	}
	item, err := f.items.Create(context.Background(), in)
	require.NoError(t, err)
	return item
}

func (f *fixture) stock(t *testing.T, itemID string) decimal.Decimal {
	t.Helper()
	item, err := f.store.Items().GetByID(context.Background(), itemID)
	require.NoError(t, err)
	require.NotNil(t, item)
	return item.CurrentStock
}

func (f *fixture) ledger(t *testing.T, itemID string) []*entity.StockAdjustment {
	t.Helper()
	entries, err := f.store.Ledger().ListByItem(context.Background(), itemID)
	require.NoError(t, err)
	return entries
}

// drain descuenta directamente sobre el almacén (fuera del runner bajo prueba).
func (f *fixture) drain(t *testing.T, itemID string, qty string) {
	t.Helper()
	engine := inventory.NewAdjustStockUseCase(f.store.Runner(), f.store.Items(), nil, logger.Nop())
	_, err := engine.Adjust(context.Background(), itemID, inventory.AdjustInput{
		Type: entity.AdjustmentWaste, Quantity: dec(qty), PerformedBy: "tester",
	})
	require.NoError(t, err)
}

// recordingPublisher guarda los eventos publicados.
type recordingPublisher struct {
	mu     sync.Mutex
	events []inventory.StockAdjustedEvent
}

func (p *recordingPublisher) PublishStockAdjusted(_ context.Context, events ...inventory.StockAdjustedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// hookRunner ejecuta before(n) antes de la n-ésima transacción (desde 1).
type hookRunner struct {
	inner  inventory.TxRunner
	before func(n int)
	mu     sync.Mutex
	n      int
}

// arm reinicia la cuenta; las altas previas de ítems no cuentan.
func (r *hookRunner) arm(before func(n int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n = 0
	r.before = before
}

func (r *hookRunner) Run(ctx context.Context, fn func(repository.InventoryItemRepository, repository.StockAdjustmentRepository) error) error {
	r.mu.Lock()
	r.n++
	n, before := r.n, r.before
	r.mu.Unlock()
	if before != nil {
		before(n)
	}
	return r.inner.Run(ctx, fn)
}

// flakyRunner hace fallar ApplyDelta sobre itemID con un error transitorio (vacío: no falla).
type flakyRunner struct {
	inner  inventory.TxRunner
	itemID string
}

func (r *flakyRunner) Run(ctx context.Context, fn func(repository.InventoryItemRepository, repository.StockAdjustmentRepository) error) error {
	return r.inner.Run(ctx, func(items repository.InventoryItemRepository, ledger repository.StockAdjustmentRepository) error {
		return fn(&flakyItems{InventoryItemRepository: items, itemID: r.itemID}, ledger)
	})
}

type flakyItems struct {
	repository.InventoryItemRepository
	itemID string
}

func (f *flakyItems) ApplyDelta(ctx context.Context, itemID string, newStock decimal.Decimal, status entity.StockStatus, lastRestocked *time.Time) error {
	if itemID == f.itemID {
		return fmt.Errorf("%w: serialization failure", domain.ErrTransient)
	}
	return f.InventoryItemRepository.ApplyDelta(ctx, itemID, newStock, status, lastRestocked)
}

// busyGuard simula un rollback ya en curso.
type busyGuard struct{}

func (busyGuard) Acquire(context.Context, string) (func(), error) {
	return nil, domain.ErrRollbackInProgress
}
