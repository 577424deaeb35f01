package batch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"repayment-engine/internal/batch"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/domain/repayment"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSource struct {
	loan.Source
}

type MockSourceFactory struct {
	mock.Mock
}

func (m *MockSourceFactory) NewSource() loan.Source {
	return m.Called().Get(0).(loan.Source)
}

type MockRepaymentService struct {
	mock.Mock
}

func (m *MockRepaymentService) FundedLoans(ctx context.Context, src loan.Source) ([]loan.Loan, error) {
	args := m.Called(ctx, src)
	if loans, ok := args.Get(0).([]loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepaymentService) Plans(ctx context.Context, src loan.Source, loanID string) ([]repayment.Plan, error) {
	args := m.Called(ctx, src, loanID)
	if plans, ok := args.Get(0).([]repayment.Plan); ok {
		return plans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepaymentService) Statements(ctx context.Context, src loan.Source, loanID string) ([]repayment.Statement, error) {
	args := m.Called(ctx, src, loanID)
	if statements, ok := args.Get(0).([]repayment.Statement); ok {
		return statements, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepaymentService) Persist(ctx context.Context, src loan.Source, loanID string) (*repayment.PersistResult, error) {
	args := m.Called(ctx, src, loanID)
	if result, ok := args.Get(0).(*repayment.PersistResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepaymentService) Verify(ctx context.Context, src loan.Source, loanID string) (*repayment.IntegrityReport, error) {
	args := m.Called(ctx, src, loanID)
	if report, ok := args.Get(0).(*repayment.IntegrityReport); ok {
		return report, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepaymentService) SyncFunded(ctx context.Context, src loan.Source) (*repayment.SyncSummary, error) {
	args := m.Called(ctx, src)
	if summary, ok := args.Get(0).(*repayment.SyncSummary); ok {
		return summary, args.Error(1)
	}
	return nil, args.Error(1)
}

func newJob(t *testing.T) (*batch.ScheduleSyncJob, *MockSourceFactory, *MockRepaymentService, loan.Source) {
	t.Helper()
	factory := new(MockSourceFactory)
	service := new(MockRepaymentService)
	src := &MockSource{}
	factory.On("NewSource").Return(src)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return batch.NewScheduleSyncJob(factory, service, logger), factory, service, src
}

func TestScheduleSyncJob_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("should succeed when every loan is persisted or skipped", func(t *testing.T) {
		job, factory, service, src := newJob(t)
		service.On("SyncFunded", ctx, src).Return(&repayment.SyncSummary{Loans: 3, Persisted: 2, Skipped: 1}, nil)

		err := job.Run(ctx)

		assert.NoError(t, err)
		factory.AssertNumberOfCalls(t, "NewSource", 1)
		service.AssertExpectations(t)
	})

	t.Run("should report failed loans", func(t *testing.T) {
		job, _, service, src := newJob(t)
		service.On("SyncFunded", ctx, src).Return(&repayment.SyncSummary{Loans: 3, Persisted: 1, Failed: 2}, nil)

		err := job.Run(ctx)

		assert.EqualError(t, err, "job completed with 2 errors")
	})

	t.Run("should wrap sync errors", func(t *testing.T) {
		job, _, service, src := newJob(t)
		cause := errors.New("lending API unavailable")
		service.On("SyncFunded", ctx, src).Return(nil, cause)

		err := job.Run(ctx)

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "cannot complete schedule sync")
	})

	t.Run("should use a fresh source on every run", func(t *testing.T) {
		job, factory, service, src := newJob(t)
		service.On("SyncFunded", ctx, src).Return(&repayment.SyncSummary{}, nil)

		assert.NoError(t, job.Run(ctx))
		assert.NoError(t, job.Run(ctx))

		factory.AssertNumberOfCalls(t, "NewSource", 2)
	})
}

func TestNewScheduleSyncJobPanicsOnMissingDependencies(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.Panics(t, func() {
		batch.NewScheduleSyncJob(nil, new(MockRepaymentService), logger)
	})
}
