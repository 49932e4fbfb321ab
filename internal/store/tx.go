// AngelaMos | 2026
// tx.go

package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/reseller-console/internal/core"
)

// TxFunc runs fn with repositories bound to a single transaction. An error
// from fn rolls back every step.
type TxFunc func(ctx context.Context, fn func(tx Repositories) error) error

// Transactional builds a TxFunc over db. bind must return repositories
// that issue their queries through the given handle.
func Transactional(db *sqlx.DB, bind func(core.DBTX) Repositories) TxFunc {
	return func(ctx context.Context, fn func(tx Repositories) error) error {
		return core.InTx(ctx, db, func(tx *sqlx.Tx) error {
			return fn(bind(tx))
		})
	}
}

// direct runs fn on the store's own repositories with no rollback.
func (s *Store) direct(_ context.Context, fn func(tx Repositories) error) error {
	return fn(s.repos)
}
