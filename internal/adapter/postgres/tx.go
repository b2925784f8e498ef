package postgres

import (
	"context"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/metrics"
	"github.com/Temutjin2k/delivery-dispatch/pkg/trm"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// TxorDB returns the transaction stored in ctx by the transaction manager, or the pool.
func TxorDB(ctx context.Context, db *pgxpool.Pool) Querier {
	if tx, ok := trm.TxFromCtx(ctx); ok {
		return tx
	}
	return db
}

// observe records the duration and result of one repository operation.
func observe(operation string, start time.Time, err error) {
	metrics.RecordDatabaseQuery(string(types.DispatchService), operation, err, time.Since(start))
}
