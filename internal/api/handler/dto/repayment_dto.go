package dto

import (
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/domain/repayment"
	"strconv"

	"github.com/shopspring/decimal"
)

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type LoanSummaryResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	Sector       string `json:"sector,omitempty"`
	Country      string `json:"country,omitempty"`
	LoanAmount   string `json:"loanAmount,omitempty"`
	FundedAmount string `json:"fundedAmount,omitempty"`
	LenderCount  int    `json:"lenderCount"`
}

type FundedLoansResponse struct {
	Count int                   `json:"count"`
	Loans []LoanSummaryResponse `json:"loans"`
}

type PaymentResponse struct {
	Month  int    `json:"month"`
	Amount string `json:"amount"`
}

type PlanResponse struct {
	LenderID       string            `json:"lenderId"`
	PerLenderShare string            `json:"perLenderShare"`
	MonthlyAmount  string            `json:"monthlyAmount"`
	FinalPayment   string            `json:"finalPayment"`
	Discrepancy    string            `json:"discrepancy"`
	Payments       []PaymentResponse `json:"payments"`
}

type PlansResponse struct {
	LoanID string         `json:"loanId"`
	Plans  []PlanResponse `json:"plans"`
}

type StatementResponse struct {
	Kind     string   `json:"kind"`
	LenderID string   `json:"lenderId"`
	SQL      string   `json:"sql"`
	Args     []string `json:"args"`
}

type StatementsResponse struct {
	LoanID     string              `json:"loanId"`
	Statements []StatementResponse `json:"statements"`
}

type PersistResponse struct {
	LoanID     string `json:"loanId"`
	Lenders    int    `json:"lenders"`
	Statements int    `json:"statements"`
}

type LenderCheckResponse struct {
	LenderID  string `json:"lenderId"`
	Expected  string `json:"expected"`
	Persisted string `json:"persisted"`
	OK        bool   `json:"ok"`
}

type IntegrityResponse struct {
	LoanID  string                `json:"loanId"`
	OK      bool                  `json:"ok"`
	Lenders []LenderCheckResponse `json:"lenders"`
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatNullMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return formatMoney(d.Decimal)
}

func NewFundedLoansResponse(loans []loan.Loan) FundedLoansResponse {
	resp := FundedLoansResponse{
		Count: len(loans),
		Loans: make([]LoanSummaryResponse, 0, len(loans)),
	}
	for _, l := range loans {
		summary := LoanSummaryResponse{
			ID:           strconv.FormatInt(l.ID, 10),
			Name:         l.Name,
			Status:       l.Status,
			Sector:       l.Sector,
			LoanAmount:   formatNullMoney(l.LoanAmount),
			FundedAmount: formatNullMoney(l.FundedAmount),
			LenderCount:  l.LenderCount,
		}
		if l.Location != nil {
			summary.Country = l.Location.Country
		}
		resp.Loans = append(resp.Loans, summary)
	}
	return resp
}

func NewPlanResponse(p repayment.Plan) PlanResponse {
	payments := make([]PaymentResponse, 0, len(p.Payments))
	for _, payment := range p.Payments {
		payments = append(payments, PaymentResponse{Month: payment.Month, Amount: formatMoney(payment.Amount)})
	}
	return PlanResponse{
		LenderID:       p.LenderID,
		PerLenderShare: formatMoney(p.PerLenderShare),
		MonthlyAmount:  formatMoney(p.MonthlyAmount),
		FinalPayment:   formatMoney(p.FinalPayment),
		Discrepancy:    formatMoney(p.Discrepancy),
		Payments:       payments,
	}
}

func NewPlansResponse(loanID int64, plans []repayment.Plan) PlansResponse {
	resp := PlansResponse{
		LoanID: strconv.FormatInt(loanID, 10),
		Plans:  make([]PlanResponse, 0, len(plans)),
	}
	for _, p := range plans {
		resp.Plans = append(resp.Plans, NewPlanResponse(p))
	}
	return resp
}

func NewStatementsResponse(loanID int64, statements []repayment.Statement) StatementsResponse {
	resp := StatementsResponse{
		LoanID:     strconv.FormatInt(loanID, 10),
		Statements: make([]StatementResponse, 0, len(statements)),
	}
	for _, s := range statements {
		args := make([]string, 0, len(s.Args))
		for _, arg := range s.Args {
			args = append(args, repayment.FormatArg(arg))
		}
		resp.Statements = append(resp.Statements, StatementResponse{
			Kind:     string(s.Kind),
			LenderID: s.LenderID,
			SQL:      s.SQL,
			Args:     args,
		})
	}
	return resp
}

func NewPersistResponse(loanID int64, result *repayment.PersistResult) PersistResponse {
	resp := PersistResponse{LoanID: strconv.FormatInt(loanID, 10)}
	if result != nil {
		resp.Lenders = result.Lenders
		resp.Statements = result.Statements
	}
	return resp
}

func NewIntegrityResponse(loanID int64, report *repayment.IntegrityReport) IntegrityResponse {
	resp := IntegrityResponse{
		LoanID:  strconv.FormatInt(loanID, 10),
		OK:      true,
		Lenders: []LenderCheckResponse{},
	}
	if report == nil {
		return resp
	}
	resp.OK = report.OK()
	for _, c := range report.Lenders {
		resp.Lenders = append(resp.Lenders, LenderCheckResponse{
			LenderID:  c.LenderID,
			Expected:  formatMoney(c.Expected),
			Persisted: formatMoney(c.Persisted),
			OK:        c.OK(),
		})
	}
	return resp
}
