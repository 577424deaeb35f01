package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"repayment-engine/internal/domain/repayment"
	"repayment-engine/internal/infrastructure/monitoring"
	"repayment-engine/internal/pkg/apperrors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// ScheduleRepository executes generated repayment statements inside a single
// transaction so a loan's schedule is stored completely or not at all.
type ScheduleRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var _ repayment.Executor = (*ScheduleRepository)(nil)

var errMsgFormat = "%w: %w"

const (
	deletePaymentsSQL        = `DELETE FROM payments WHERE loan_id = $1`
	deletePaymentDefaultsSQL = `DELETE FROM payment_defaults WHERE loan_id = $1`
)

const lenderTotalsSQL = `
        SELECT lender_id, SUM(amount)::text
        FROM payments
        WHERE loan_id = $1
        GROUP BY lender_id
        ORDER BY lender_id`

func NewScheduleRepository(db DBPool, logger *slog.Logger) *ScheduleRepository {
	return &ScheduleRepository{db: db, logger: logger.With("component", "ScheduleRepository")}
}

func (r *ScheduleRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *ScheduleRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *ScheduleRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *ScheduleRepository) Execute(ctx context.Context, statements []repayment.Statement) (executed int, err error) {
	if len(statements) == 0 {
		return 0, nil
	}

	startTime := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		monitoring.RecordDBQuery("execute_schedule", status, time.Since(startTime))
	}()

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer r.RollbackTx(ctx, tx)

	if err := r.clearLoans(ctx, tx, statements); err != nil {
		return 0, err
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt.SQL, stmt.Args...); err != nil {
			r.logger.ErrorContext(ctx, "Failed executing repayment statement",
				"error", err, "index", i, "kind", stmt.Kind, "loan_id", stmt.LoanID, "lender_id", stmt.LenderID)
			return 0, fmt.Errorf("%w: failed executing statement %d for lender %s: %w", apperrors.ErrDatabase, i+1, stmt.LenderID, err)
		}
	}

	if err := r.CommitTx(ctx, tx); err != nil {
		return 0, err
	}

	monitoring.RecordStatementsExecuted(len(statements))
	r.logger.InfoContext(ctx, "Repayment statements committed", "loan_id", statements[0].LoanID, "statements", len(statements))
	return len(statements), nil
}

// clearLoans removes any schedule already stored for the loans being written,
// so executing the same schedule again replaces it instead of duplicating rows.
func (r *ScheduleRepository) clearLoans(ctx context.Context, tx pgx.Tx, statements []repayment.Statement) error {
	seen := make(map[int64]bool)
	for _, stmt := range statements {
		if seen[stmt.LoanID] {
			continue
		}
		seen[stmt.LoanID] = true

		for _, sql := range []string{deletePaymentsSQL, deletePaymentDefaultsSQL} {
			tag, err := tx.Exec(ctx, sql, stmt.LoanID)
			if err != nil {
				r.logger.ErrorContext(ctx, "Failed clearing previous schedule", "loan_id", stmt.LoanID, "error", err)
				return fmt.Errorf("%w: failed clearing previous schedule for loan %d: %w", apperrors.ErrDatabase, stmt.LoanID, err)
			}
			if tag.RowsAffected() > 0 {
				r.logger.InfoContext(ctx, "Replacing previously persisted schedule rows", "loan_id", stmt.LoanID, "rows", tag.RowsAffected())
			}
		}
	}
	return nil
}

// LenderTotals sums the persisted payment rows of a loan per lender.
func (r *ScheduleRepository) LenderTotals(ctx context.Context, loanID int64) (totals map[string]decimal.Decimal, err error) {
	startTime := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		monitoring.RecordDBQuery("lender_totals", status, time.Since(startTime))
	}()

	rows, err := r.db.Query(ctx, lenderTotalsSQL, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query lender totals", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf("%w: failed to query lender totals: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	totals = make(map[string]decimal.Decimal)
	for rows.Next() {
		var lenderID, sum string
		if err := rows.Scan(&lenderID, &sum); err != nil {
			return nil, fmt.Errorf("%w: failed to scan lender total: %w", apperrors.ErrDatabase, err)
		}
		amount, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid total %q for lender %s: %w", apperrors.ErrDatabase, sum, lenderID, err)
		}
		totals[lenderID] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed iterating lender totals: %w", apperrors.ErrDatabase, err)
	}

	return totals, nil
}
