// Package redis candado distribuido de rollback sobre Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const rollbackKeyPrefix = "stock-ledger:rollback:"

var _ inventory.RollbackGuard = (*RollbackGuard)(nil)

// Borra la llave solo si sigue siendo nuestra (el TTL pudo expirar y otro proceso tomarla).
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RollbackGuard serializa rollbacks de una misma transacción entre procesos con SET NX + TTL.
type RollbackGuard struct {
	client goredis.UniversalClient
	ttl    time.Duration
	log    *logger.Logger
}

// NewRollbackGuard construye el candado. ttl acota cuánto puede quedar tomado si el proceso muere.
func NewRollbackGuard(client goredis.UniversalClient, ttl time.Duration, log *logger.Logger) *RollbackGuard {
	return &RollbackGuard{client: client, ttl: ttl, log: log.Component("rollback_guard")}
}

// Acquire toma el candado o devuelve domain.ErrRollbackInProgress.
func (g *RollbackGuard) Acquire(ctx context.Context, transactionID string) (func(), error) {
	key := rollbackKeyPrefix + transactionID
	token := uuid.New().String()
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: candado de rollback: %w", domain.ErrTransient, err)
	}
	if !ok {
		return nil, domain.ErrRollbackInProgress
	}
	return func() {
		// El ctx del caller puede estar cancelado; liberar igual
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(relCtx, g.client, []string{key}, token).Err(); err != nil {
			g.log.Warn().Err(err).Str("transaction_id", transactionID).Msg("no se pudo liberar candado de rollback; expira por TTL")
		}
	}, nil
}
