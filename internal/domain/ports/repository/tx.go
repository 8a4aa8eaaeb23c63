package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function inside a storage transaction, passing
// the backend transaction handle via `tx`.
//
// Semantics required by every use case in this module:
//   - all reads inside fn observe a fully-committed prior state;
//   - buffered writes apply atomically on commit, or not at all;
//   - concurrent transactions touching the same rows resolve by one winning
//     and the others being re-invoked from scratch (optimistic concurrency);
//     fn must therefore be safe to re-execute and must re-take its reads
//     rather than caching them across invocations.
//
// The concrete type of `tx` is infra-defined (pgx.Tx for Postgres).
// Repositories must gracefully accept a nil handle (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
