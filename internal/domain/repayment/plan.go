package repayment

import (
	"fmt"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

type Payment struct {
	Month  int
	Amount decimal.Decimal
}

// Plan is one lender's share of a loan spread across its repayment term.
// Months 1..N-1 pay MonthlyAmount and month N pays FinalPayment.
type Plan struct {
	LoanID         int64
	LenderID       string
	PerLenderShare decimal.Decimal
	MonthlyAmount  decimal.Decimal
	FinalPayment   decimal.Decimal
	Discrepancy    decimal.Decimal
	Payments       []Payment
}

// Split holds the amounts every identified lender of a loan receives.
type Split struct {
	PerLenderShare decimal.Decimal
	MonthlyAmount  decimal.Decimal
	FinalPayment   decimal.Decimal
	Discrepancy    decimal.Decimal
	Months         int
}

// ComputeSplit divides the loan amount evenly over the declared lender count
// and then over the repayment term, rounding up to the cent at each step.
// The final month absorbs the residual. ok is false when the loan lacks
// anything a schedule needs.
func ComputeSplit(l *loan.Loan) (split Split, ok bool) {
	if !l.Schedulable() {
		return Split{}, false
	}

	months := l.RepaymentTerm()
	share := ceilCents(l.LoanAmount.Decimal, int64(l.LenderCount))
	monthly := ceilCents(share, int64(months))
	beforeFinal := monthly.Mul(decimal.NewFromInt(int64(months - 1)))
	final := share.Sub(beforeFinal)

	return Split{
		PerLenderShare: share,
		MonthlyAmount:  monthly,
		FinalPayment:   final,
		Discrepancy:    share.Sub(beforeFinal.Add(final)),
		Months:         months,
	}, true
}

// BuildRepaymentPlan returns one plan per identified lender. Anonymous
// lenders are skipped and a loan that cannot be scheduled yields an empty
// result.
func BuildRepaymentPlan(l *loan.Loan, lenders []loan.Lender) []Plan {
	split, ok := ComputeSplit(l)
	if !ok {
		return []Plan{}
	}

	plans := make([]Plan, 0, len(lenders))
	for _, lender := range lenders {
		if !lender.Identified() {
			continue
		}
		plans = append(plans, newPlan(l.ID, lender.LenderID, split))
	}
	return plans
}

func newPlan(loanID int64, lenderID string, split Split) Plan {
	payments := make([]Payment, 0, split.Months)
	for month := 1; month < split.Months; month++ {
		payments = append(payments, Payment{Month: month, Amount: split.MonthlyAmount})
	}
	payments = append(payments, Payment{Month: split.Months, Amount: split.FinalPayment})

	return Plan{
		LoanID:         loanID,
		LenderID:       lenderID,
		PerLenderShare: split.PerLenderShare,
		MonthlyAmount:  split.MonthlyAmount,
		FinalPayment:   split.FinalPayment,
		Discrepancy:    split.Discrepancy,
		Payments:       payments,
	}
}

func (p Plan) Total() decimal.Decimal {
	total := decimal.Zero
	for _, payment := range p.Payments {
		total = total.Add(payment.Amount)
	}
	return total
}

// Verify checks that the lender gets back exactly their share.
func (p Plan) Verify() error {
	if !p.Discrepancy.IsZero() {
		return fmt.Errorf("%w: plan for lender %s on loan %d has discrepancy %s",
			apperrors.ErrInternalServer, p.LenderID, p.LoanID, p.Discrepancy.StringFixed(2))
	}
	if total := p.Total(); !total.Equal(p.PerLenderShare) {
		return fmt.Errorf("%w: plan for lender %s on loan %d pays %s, expected %s",
			apperrors.ErrInternalServer, p.LenderID, p.LoanID, total.StringFixed(2), p.PerLenderShare.StringFixed(2))
	}
	return nil
}

// ceilCents divides amount by n and rounds the quotient up to the nearest
// hundredth. n must be positive.
func ceilCents(amount decimal.Decimal, n int64) decimal.Decimal {
	if n <= 0 {
		panic(fmt.Sprintf("repayment: division by non-positive count %d", n))
	}
	q, r := amount.Mul(hundred).QuoRem(decimal.NewFromInt(n), 0)
	if r.Sign() > 0 {
		q = q.Add(one)
	}
	return q.Shift(-2)
}
