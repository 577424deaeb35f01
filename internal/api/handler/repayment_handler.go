package handler

import (
	"log/slog"
	"net/http"
	"repayment-engine/internal/api/handler/dto"
	"repayment-engine/internal/api/middleware"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/domain/repayment"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RepaymentHandler serves loan plans and statements. Every request gets a
// fresh loan source so cached API responses never cross requests.
type RepaymentHandler struct {
	service repayment.Service
	sources loan.SourceFactory
	logger  *slog.Logger
}

func NewRepaymentHandler(s repayment.Service, sources loan.SourceFactory, l *slog.Logger) *RepaymentHandler {
	return &RepaymentHandler{
		service: s,
		sources: sources,
		logger:  l.With("component", "RepaymentHandler"),
	}
}

func loanIDParam(r *http.Request) string {
	return chi.URLParam(r, "loanID")
}

func numericID(loanID string) int64 {
	id, _ := strconv.ParseInt(loanID, 10, 64)
	return id
}

// ListFundedLoans returns the loans currently reported as funded.
//
// @Summary List funded loans
// @Description Fetches the funded loan summaries from the lending API.
// @Tags Loans
// @Produce json
// @Success 200 {object} dto.FundedLoansResponse "Funded loans"
// @Failure 502 {object} dto.ErrorResponse "Lending API error or unavailable"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/funded [get]
func (h *RepaymentHandler) ListFundedLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.FundedLoans(r.Context(), h.sources.NewSource())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewFundedLoansResponse(loans))
}

// GetPlan computes the repayment plan of every identified lender.
//
// @Summary Compute repayment plans
// @Description Splits the loan amount evenly across its lenders and each share across the repayment term, rounding up to the cent. Loans that cannot be scheduled return an empty list.
// @Tags Repayments
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.PlansResponse "Repayment plans"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 502 {object} dto.ErrorResponse "Lending API error or unavailable"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/plan [get]
func (h *RepaymentHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	loanID := loanIDParam(r)
	plans, err := h.service.Plans(r.Context(), h.sources.NewSource(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPlansResponse(numericID(loanID), plans))
}

// GetStatements renders the insert statements for a loan's schedule.
//
// @Summary Generate repayment statements
// @Description Returns the parameterized insert statements that record the loan's schedule. Use format=text for a readable SQL listing.
// @Tags Repayments
// @Produce json
// @Produce plain
// @Param loanID path int true "Loan ID"
// @Param format query string false "Response format (json or text)"
// @Success 200 {object} dto.StatementsResponse "Repayment statements"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 502 {object} dto.ErrorResponse "Lending API error or unavailable"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/statements [get]
func (h *RepaymentHandler) GetStatements(w http.ResponseWriter, r *http.Request) {
	loanID := loanIDParam(r)
	statements, err := h.service.Statements(r.Context(), h.sources.NewSource(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		rendered := make([]string, 0, len(statements))
		for _, s := range statements {
			rendered = append(rendered, s.String())
		}
		respondText(w, http.StatusOK, strings.Join(rendered, "\n\n"))
		return
	}
	respondJSON(w, http.StatusOK, dto.NewStatementsResponse(numericID(loanID), statements))
}

// PersistSchedule stores the loan's schedule in the database.
//
// @Summary Persist repayment schedule
// @Description Executes the loan's repayment statements in a single transaction.
// @Tags Repayments
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 201 {object} dto.PersistResponse "Schedule persisted"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 502 {object} dto.ErrorResponse "Lending API error or unavailable"
// @Failure 503 {object} dto.ErrorResponse "Persistence disabled"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/schedule [post]
// @Security BearerAuth
func (h *RepaymentHandler) PersistSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := loanIDParam(r)
	h.logger.InfoContext(r.Context(), "Persisting repayment schedule", "loanID", loanID, "subject", middleware.SubjectFromContext(r.Context()))

	result, err := h.service.Persist(r.Context(), h.sources.NewSource(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewPersistResponse(numericID(loanID), result))
}

// CheckIntegrity compares expected lender totals with what was persisted.
//
// @Summary Check persisted schedule
// @Description Sums the stored monthly payments per lender and compares them with each lender's share.
// @Tags Repayments
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.IntegrityResponse "Integrity report"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 502 {object} dto.ErrorResponse "Lending API error or unavailable"
// @Failure 503 {object} dto.ErrorResponse "Persistence disabled"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/integrity [get]
func (h *RepaymentHandler) CheckIntegrity(w http.ResponseWriter, r *http.Request) {
	loanID := loanIDParam(r)
	report, err := h.service.Verify(r.Context(), h.sources.NewSource(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewIntegrityResponse(numericID(loanID), report))
}
