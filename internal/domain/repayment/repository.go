package repayment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Executor runs generated statements against the persistence layer. The
// scheduler itself never opens a connection.
type Executor interface {
	Execute(ctx context.Context, statements []Statement) (int, error)

	LenderTotals(ctx context.Context, loanID int64) (map[string]decimal.Decimal, error)
}

type EventPublisher interface {
	PublishSchedulePersisted(ctx context.Context, event SchedulePersistedEvent) error
}

// ProcessedLoanMarker remembers which loans already had their schedule
// persisted so the sync job can skip them.
type ProcessedLoanMarker interface {
	IsProcessed(ctx context.Context, loanID int64) (bool, error)

	MarkProcessed(ctx context.Context, loanID int64) error
}

type SchedulePersistedEvent struct {
	LoanID     int64     `json:"loanId"`
	Lenders    int       `json:"lenders"`
	Statements int       `json:"statements"`
	Months     int       `json:"months"`
	Timestamp  time.Time `json:"timestamp"`
}
