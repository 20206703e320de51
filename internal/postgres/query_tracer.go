package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/billforge/billforge/internal/logger"
	"github.com/jmoiron/sqlx"
)

// TracedQuerier logs every statement it forwards, with its duration and
// the owning transaction when one is open.
type TracedQuerier struct {
	Querier
	logger *logger.Logger
	txID   string
}

// NewTracedQuerier wraps a querier with statement logging
func NewTracedQuerier(q Querier, logger *logger.Logger, txID string) *TracedQuerier {
	return &TracedQuerier{Querier: q, logger: logger, txID: txID}
}

// trace returns the completion callback for one statement. Successful
// statements log at debug without their arguments; failures carry the
// arguments so the statement can be reproduced.
func (tq *TracedQuerier) trace(query string, arg interface{}) func(error) {
	start := time.Now()
	return func(err error) {
		fields := []interface{}{
			"duration_ms", time.Since(start).Milliseconds(),
			"query", query,
		}
		if tq.txID != "" {
			fields = append(fields, "tx_id", tq.txID)
		}
		if err != nil {
			fields = append(fields,
				"params", fmt.Sprintf("%+v", arg),
				"error", err.Error(),
			)
			tq.logger.Errorw("database query failed", fields...)
			return
		}
		tq.logger.Debugw("database query completed", fields...)
	}
}

func (tq *TracedQuerier) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	done := tq.trace(query, args)
	result, err := tq.Querier.ExecContext(ctx, query, args...)
	done(err)
	return result, err
}

func (tq *TracedQuerier) NamedExec(query string, arg interface{}) (sql.Result, error) {
	done := tq.trace(query, arg)
	result, err := tq.Querier.NamedExec(query, arg)
	done(err)
	return result, err
}

func (tq *TracedQuerier) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	done := tq.trace(query, args)
	rows, err := tq.Querier.QueryContext(ctx, query, args...)
	done(err)
	return rows, err
}

func (tq *TracedQuerier) NamedQuery(query string, arg interface{}) (*sqlx.Rows, error) {
	done := tq.trace(query, arg)
	rows, err := tq.Querier.NamedQuery(query, arg)
	done(err)
	return rows, err
}
