package repayment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/infrastructure/monitoring"
	"repayment-engine/internal/pkg/apperrors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	FundedLoans(ctx context.Context, src loan.Source) ([]loan.Loan, error)

	Plans(ctx context.Context, src loan.Source, loanID string) ([]Plan, error)

	Statements(ctx context.Context, src loan.Source, loanID string) ([]Statement, error)

	Persist(ctx context.Context, src loan.Source, loanID string) (*PersistResult, error)

	Verify(ctx context.Context, src loan.Source, loanID string) (*IntegrityReport, error)

	SyncFunded(ctx context.Context, src loan.Source) (*SyncSummary, error)
}

type PersistResult struct {
	LoanID     int64
	Lenders    int
	Statements int
}

type LenderCheck struct {
	LenderID  string
	Expected  decimal.Decimal
	Persisted decimal.Decimal
}

func (c LenderCheck) OK() bool {
	return c.Expected.Equal(c.Persisted)
}

type IntegrityReport struct {
	LoanID  int64
	Lenders []LenderCheck
}

func (r *IntegrityReport) OK() bool {
	for _, c := range r.Lenders {
		if !c.OK() {
			return false
		}
	}
	return true
}

type SyncSummary struct {
	Loans     int
	Persisted int
	Skipped   int
	Failed    int
}

type serviceImpl struct {
	executor  Executor
	publisher EventPublisher
	marker    ProcessedLoanMarker
	logger    *slog.Logger
}

// NewService wires the scheduler to its optional collaborators. A nil
// executor disables persistence; a nil publisher or marker disables events
// or repeat detection.
func NewService(executor Executor, publisher EventPublisher, marker ProcessedLoanMarker, logger *slog.Logger) Service {
	return &serviceImpl{
		executor:  executor,
		publisher: publisher,
		marker:    marker,
		logger:    logger.With("component", "RepaymentService"),
	}
}

func (s *serviceImpl) FundedLoans(ctx context.Context, src loan.Source) ([]loan.Loan, error) {
	s.logger.InfoContext(ctx, "Fetching funded loans")
	loans, err := src.FetchFundedLoans(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to fetch funded loans", "error", err)
		return nil, fmt.Errorf("failed to fetch funded loans: %w", err)
	}
	return loans, nil
}

func (s *serviceImpl) Plans(ctx context.Context, src loan.Source, loanID string) ([]Plan, error) {
	l, lenders, err := s.fetchLoan(ctx, src, loanID)
	if err != nil {
		return nil, err
	}

	plans := BuildRepaymentPlan(l, lenders)
	monitoring.RecordPlansBuilt(len(plans))
	s.logger.InfoContext(ctx, "Built repayment plans", "loanID", loanID, "plans", len(plans))
	return plans, nil
}

func (s *serviceImpl) Statements(ctx context.Context, src loan.Source, loanID string) ([]Statement, error) {
	plans, err := s.Plans(ctx, src, loanID)
	if err != nil {
		return nil, err
	}
	return StatementsForPlans(plans), nil
}

func (s *serviceImpl) Persist(ctx context.Context, src loan.Source, loanID string) (result *PersistResult, err error) {
	if s.executor == nil {
		return nil, apperrors.ErrPersistenceDisabled
	}

	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		monitoring.RecordSchedulePersisted(status)
	}()

	plans, err := s.Plans(ctx, src, loanID)
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		if err := p.Verify(); err != nil {
			s.logger.ErrorContext(ctx, "Plan failed integrity check", "loanID", loanID, "lenderID", p.LenderID, "error", err)
			return nil, err
		}
	}

	id, _ := strconv.ParseInt(loanID, 10, 64)
	result = &PersistResult{LoanID: id, Lenders: len(plans)}
	if len(plans) == 0 {
		s.logger.WarnContext(ctx, "Nothing to persist for loan", "loanID", loanID)
		return result, nil
	}

	statements := StatementsForPlans(plans)
	executed, err := s.executor.Execute(ctx, statements)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to execute repayment statements", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("failed to persist schedule for loan %s: %w", loanID, err)
	}
	result.Statements = executed
	s.logger.InfoContext(ctx, "Repayment schedule persisted", "loanID", loanID, "lenders", len(plans), "statements", executed)

	s.publishPersisted(ctx, result, len(plans[0].Payments))
	s.markProcessed(ctx, result.LoanID)

	return result, nil
}

func (s *serviceImpl) Verify(ctx context.Context, src loan.Source, loanID string) (*IntegrityReport, error) {
	if s.executor == nil {
		return nil, apperrors.ErrPersistenceDisabled
	}

	plans, err := s.Plans(ctx, src, loanID)
	if err != nil {
		return nil, err
	}

	id, _ := strconv.ParseInt(loanID, 10, 64)
	totals, err := s.executor.LenderTotals(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read persisted lender totals", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("failed to read persisted totals for loan %s: %w", loanID, err)
	}

	report := &IntegrityReport{LoanID: id, Lenders: make([]LenderCheck, 0, len(plans))}
	for _, p := range plans {
		persisted, ok := totals[p.LenderID]
		if !ok {
			persisted = decimal.Zero
		}
		report.Lenders = append(report.Lenders, LenderCheck{
			LenderID:  p.LenderID,
			Expected:  p.PerLenderShare,
			Persisted: persisted,
		})
	}

	if !report.OK() {
		s.logger.WarnContext(ctx, "Persisted schedule does not match expected lender totals", "loanID", loanID)
	}
	return report, nil
}

func (s *serviceImpl) SyncFunded(ctx context.Context, src loan.Source) (*SyncSummary, error) {
	if s.executor == nil {
		return nil, apperrors.ErrPersistenceDisabled
	}

	startTime := time.Now()
	loans, err := s.FundedLoans(ctx, src)
	if err != nil {
		return nil, err
	}

	summary := &SyncSummary{Loans: len(loans)}
	for _, l := range loans {
		if err := ctx.Err(); err != nil {
			s.logger.WarnContext(ctx, "Sync interrupted", "error", err, "remaining", summary.Loans-summary.Persisted-summary.Skipped-summary.Failed)
			return summary, err
		}

		logCtx := s.logger.With(slog.Int64("loanID", l.ID))
		if s.isProcessed(ctx, l.ID) {
			logCtx.DebugContext(ctx, "Loan already processed, skipping")
			summary.Skipped++
			continue
		}

		if _, err := s.Persist(ctx, src, strconv.FormatInt(l.ID, 10)); err != nil {
			logCtx.ErrorContext(ctx, "Failed to persist schedule during sync", slog.Any("error", err))
			summary.Failed++
			continue
		}
		summary.Persisted++
	}

	s.logger.InfoContext(ctx, "Funded loan sync finished",
		slog.Int("loans", summary.Loans),
		slog.Int("persisted", summary.Persisted),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", time.Since(startTime)))
	return summary, nil
}

func (s *serviceImpl) fetchLoan(ctx context.Context, src loan.Source, loanID string) (*loan.Loan, []loan.Lender, error) {
	l, err := src.FetchLoanDetail(ctx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to fetch loan detail", "loanID", loanID, "error", err)
		return nil, nil, fmt.Errorf("failed to fetch loan %s: %w", loanID, err)
	}
	if term := l.RepaymentTerm(); term > loan.MaxRepaymentTerm {
		s.logger.WarnContext(ctx, "Loan repayment term exceeds the supported maximum",
			"loanID", loanID, "repaymentTerm", term, "max", loan.MaxRepaymentTerm)
	}
	if !l.Schedulable() {
		s.logger.WarnContext(ctx, "Loan cannot be scheduled, skipping", "loanID", loanID, "found", l != nil)
		return l, nil, nil
	}

	lenders, err := src.FetchLenders(ctx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to fetch lenders", "loanID", loanID, "error", err)
		return nil, nil, fmt.Errorf("failed to fetch lenders for loan %s: %w", loanID, err)
	}
	return l, lenders, nil
}

func (s *serviceImpl) publishPersisted(ctx context.Context, result *PersistResult, months int) {
	if s.publisher == nil {
		return
	}
	event := SchedulePersistedEvent{
		LoanID:     result.LoanID,
		Lenders:    result.Lenders,
		Statements: result.Statements,
		Months:     months,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.publisher.PublishSchedulePersisted(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish schedule persisted event", "loanID", result.LoanID, "error", err)
	}
}

func (s *serviceImpl) markProcessed(ctx context.Context, loanID int64) {
	if s.marker == nil {
		return
	}
	if err := s.marker.MarkProcessed(ctx, loanID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to mark loan as processed", "loanID", loanID, "error", err)
	}
}

func (s *serviceImpl) isProcessed(ctx context.Context, loanID int64) bool {
	if s.marker == nil {
		return false
	}
	processed, err := s.marker.IsProcessed(ctx, loanID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "Failed to check processed marker, treating loan as new", "loanID", loanID, "error", err)
		}
		return false
	}
	return processed
}
