package loan

import "github.com/shopspring/decimal"

const StatusFunded = "funded"

// MaxRepaymentTerm bounds the term, in months, accepted from the API.
const MaxRepaymentTerm = 600

// Loan mirrors the lending API's loan object. Summaries returned by the
// funded-loan search carry no Terms; the detail endpoint fills them in.
type Loan struct {
	ID            int64               `json:"id"`
	Name          string              `json:"name"`
	Status        string              `json:"status"`
	Activity      string              `json:"activity,omitempty"`
	Sector        string              `json:"sector,omitempty"`
	Use           string              `json:"use,omitempty"`
	Location      *Location           `json:"location,omitempty"`
	LoanAmount    decimal.NullDecimal `json:"loan_amount"`
	FundedAmount  decimal.NullDecimal `json:"funded_amount"`
	LenderCount   int                 `json:"lender_count"`
	BorrowerCount int                 `json:"borrower_count,omitempty"`
	Terms         *Terms              `json:"terms,omitempty"`
}

type Location struct {
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	Town        string `json:"town,omitempty"`
}

type Terms struct {
	DisbursalCurrency string              `json:"disbursal_currency,omitempty"`
	RepaymentTerm     int                 `json:"repayment_term"`
	LoanAmount        decimal.NullDecimal `json:"loan_amount"`
}

// Lender is one contributor to a loan. Anonymous lenders come back without
// a LenderID.
type Lender struct {
	LenderID    string `json:"lender_id,omitempty"`
	Name        string `json:"name"`
	Whereabouts string `json:"whereabouts,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	UID         string `json:"uid,omitempty"`
}

func (l *Loan) RepaymentTerm() int {
	if l == nil || l.Terms == nil {
		return 0
	}
	return l.Terms.RepaymentTerm
}

// Schedulable reports whether the loan carries everything a repayment
// schedule needs: an id, a positive term no longer than MaxRepaymentTerm, an
// amount and a positive declared lender count.
func (l *Loan) Schedulable() bool {
	if l == nil {
		return false
	}
	return l.ID != 0 &&
		l.RepaymentTerm() > 0 &&
		l.RepaymentTerm() <= MaxRepaymentTerm &&
		l.LoanAmount.Valid &&
		l.LenderCount > 0
}

func (l Lender) Identified() bool {
	return l.LenderID != ""
}
