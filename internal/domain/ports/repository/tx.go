package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Repositories accept nil for the
// non-transactional path; the concrete type is infra-defined (pgx.Tx for
// Postgres, ignored by in-memory test doubles).
type Tx interface{}

// NoTX is the explicit "no transaction" marker for call sites that want to
// document intent.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via tx. Keeping the interface this small
// stops transaction types from leaking into use-case signatures.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
