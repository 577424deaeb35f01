package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"repayment-engine/internal/api/handler/dto"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/domain/repayment"
	"repayment-engine/internal/pkg/apperrors"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
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

func newRepaymentHandler() (*RepaymentHandler, *MockRepaymentService, *MockSourceFactory, loan.Source) {
	service := new(MockRepaymentService)
	factory := new(MockSourceFactory)
	src := &MockSource{}
	factory.On("NewSource").Return(src)
	return NewRepaymentHandler(service, factory, logger), service, factory, src
}

func withLoanID(req *http.Request, loanID string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{Keys: []string{"loanID"}, Values: []string{loanID}},
	}))
}

func samplePlans() []repayment.Plan {
	l := &loan.Loan{
		ID:          1,
		LoanAmount:  decimal.NewNullDecimal(decimal.NewFromInt(100)),
		LenderCount: 2,
		Terms:       &loan.Terms{RepaymentTerm: 3},
	}
	return repayment.BuildRepaymentPlan(l, []loan.Lender{{LenderID: "alice"}, {Name: "Anonymous"}})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorDetail {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func TestRepaymentHandlerGetPlan(t *testing.T) {
	t.Run("returns plans for every identified lender", func(t *testing.T) {
		h, service, factory, src := newRepaymentHandler()
		service.On("Plans", mock.Anything, src, "1").Return(samplePlans(), nil)

		rec := httptest.NewRecorder()
		h.GetPlan(rec, withLoanID(httptest.NewRequest(http.MethodGet, "/loans/1/plan", nil), "1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.PlansResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "1", resp.LoanID)
		require.Len(t, resp.Plans, 1)
		assert.Equal(t, "16.67", resp.Plans[0].MonthlyAmount)
		assert.Equal(t, "16.66", resp.Plans[0].FinalPayment)
		factory.AssertNumberOfCalls(t, "NewSource", 1)
		service.AssertExpectations(t)
	})

	t.Run("returns an empty list for loans that cannot be scheduled", func(t *testing.T) {
		h, service, _, src := newRepaymentHandler()
		service.On("Plans", mock.Anything, src, "5").Return([]repayment.Plan{}, nil)

		rec := httptest.NewRecorder()
		h.GetPlan(rec, withLoanID(httptest.NewRequest(http.MethodGet, "/loans/5/plan", nil), "5"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"loanId":"5","plans":[]}`, rec.Body.String())
	})

	t.Run("maps validation errors to 400", func(t *testing.T) {
		h, service, _, src := newRepaymentHandler()
		err := fmt.Errorf("failed to fetch loan abc: %w", apperrors.NewValidationError("loanId", "loan id must be numeric"))
		service.On("Plans", mock.Anything, src, "abc").Return(nil, err)

		rec := httptest.NewRecorder()
		h.GetPlan(rec, withLoanID(httptest.NewRequest(http.MethodGet, "/loans/abc/plan", nil), "abc"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		detail := decodeError(t, rec)
		assert.Equal(t, "loanId", detail.Field)
		assert.Equal(t, "loan id must be numeric", detail.Message)
	})

	t.Run("passes lending API errors through verbatim", func(t *testing.T) {
		h, service, _, src := newRepaymentHandler()
		err := fmt.Errorf("failed to fetch loan 1: %w", apperrors.NewAPIError("org.kiva.InvalidLoanId", "Loan 1 does not exist"))
		service.On("Plans", mock.Anything, src, "1").Return(nil, err)

		rec := httptest.NewRecorder()
		h.GetPlan(rec, withLoanID(httptest.NewRequest(http.MethodGet, "/loans/1/plan", nil), "1"))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		detail := decodeError(t, rec)
		assert.Equal(t, "org.kiva.InvalidLoanId", detail.Code)
		assert.Equal(t, "Loan 1 does not exist", detail.Message)
	})

	t.Run("maps transport failures to 502", func(t *testing.T) {
		h, service, _, src := newRepaymentHandler()
		err := apperrors.NewTransportError(errors.New("dial tcp: refused"), "request to lending API failed")
		service.On("Plans", mock.Anything, src, "1").Return(nil, err)

		rec := httptest.NewRecorder()
		h.GetPlan(rec, withLoanID(httptest.NewRequest(http.MethodGet, "/loans/1/plan", nil), "1"))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "TRANSPORT_ERROR", decodeError(t, rec).Code)
	})
}

func TestRepaymentHandlerGetStatements(t *testing.T) {
	statements := repayment.StatementsForPlans(samplePlans())

	t.Run("returns statements as JSON", func(t *testing.T) {
		h, service, _, src := newRepaymentHandler()
		service.On("Statements", mock.Anything, src, "1").Return(statements, nil)

		rec := httptest.NewRecorder()
		h.GetStatements(rec, withLoanID(httptest.NewRequest(http.MethodGet, "/loans/1/statements", nil), "1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.StatementsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Statements, 2)
		assert.Contains(t, resp.Statements[0].SQL, "INSERT INTO payment_defaults")
		assert.Contains(t, resp.Statements[1].SQL, "INSERT INTO payments")
	})

	t.Run("renders statements as text", func(t *testing.T) {
		h, service, _, src := newRepaymentHandler()
		service.On("Statements", mock.Anything, src, "1").Return(statements, nil)

		rec := httptest.NewRecorder()
		h.GetStatements(rec, withLoanID(httptest.NewRequest(http.MethodGet, "/loans/1/statements?format=text", nil), "1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
		body := rec.Body.String()
		assert.Equal(t, 2, strings.Count(body, "-- args:"))
		assert.Contains(t, body, `$2="alice"`)
	})
}

func TestRepaymentHandlerListFundedLoans(t *testing.T) {
	h, service, _, src := newRepaymentHandler()
	service.On("FundedLoans", mock.Anything, src).Return([]loan.Loan{{ID: 9, Name: "Ana", Status: "funded"}}, nil)

	rec := httptest.NewRecorder()
	h.ListFundedLoans(rec, httptest.NewRequest(http.MethodGet, "/loans/funded", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.FundedLoansResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "9", resp.Loans[0].ID)
}

func TestRepaymentHandlerPersistSchedule(t *testing.T) {
	t.Run("returns 201 with the persisted counts", func(t *testing.T) {
		h, service, _, src := newRepaymentHandler()
		service.On("Persist", mock.Anything, src, "1").Return(&repayment.PersistResult{LoanID: 1, Lenders: 6, Statements: 12}, nil)

		rec := httptest.NewRecorder()
		h.PersistSchedule(rec, withLoanID(httptest.NewRequest(http.MethodPost, "/loans/1/schedule", nil), "1"))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"loanId":"1","lenders":6,"statements":12}`, rec.Body.String())
	})

	t.Run("returns 503 when persistence is disabled", func(t *testing.T) {
		h, service, _, src := newRepaymentHandler()
		service.On("Persist", mock.Anything, src, "1").Return(nil, apperrors.ErrPersistenceDisabled)

		rec := httptest.NewRecorder()
		h.PersistSchedule(rec, withLoanID(httptest.NewRequest(http.MethodPost, "/loans/1/schedule", nil), "1"))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "PERSISTENCE_DISABLED", decodeError(t, rec).Code)
	})

	t.Run("returns 500 on database failures", func(t *testing.T) {
		h, service, _, src := newRepaymentHandler()
		service.On("Persist", mock.Anything, src, "1").Return(nil, fmt.Errorf("%w: commit failed", apperrors.ErrDatabase))

		rec := httptest.NewRecorder()
		h.PersistSchedule(rec, withLoanID(httptest.NewRequest(http.MethodPost, "/loans/1/schedule", nil), "1"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRepaymentHandlerCheckIntegrity(t *testing.T) {
	h, service, _, src := newRepaymentHandler()
	report := &repayment.IntegrityReport{
		LoanID:  1,
		Lenders: []repayment.LenderCheck{{LenderID: "alice", Expected: decimal.NewFromInt(50), Persisted: decimal.NewFromInt(50)}},
	}
	service.On("Verify", mock.Anything, src, "1").Return(report, nil)

	rec := httptest.NewRecorder()
	h.CheckIntegrity(rec, withLoanID(httptest.NewRequest(http.MethodGet, "/loans/1/integrity", nil), "1"))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.IntegrityResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "50.00", resp.Lenders[0].Persisted)
}
