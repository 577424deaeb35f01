package repayment

import (
	"fmt"
	"repayment-engine/internal/domain/loan"
	"strings"

	"github.com/shopspring/decimal"
)

type StatementKind string

const (
	KindDefaultSchedule StatementKind = "default_schedule"
	KindPayments        StatementKind = "payments"
)

const (
	insertPaymentDefaultsSQL = `INSERT INTO payment_defaults
(loan_id, lender_id, default_payment, final_payment, discrepancy) VALUES
($1, $2, $3, $4, $5)`

	insertPaymentsPrefix = `INSERT INTO payments
(loan_id, lender_id, month, amount) VALUES
`
	paymentColumns = 4
)

// Statement is a parameterized insert. Values only ever travel in Args.
type Statement struct {
	Kind     StatementKind
	LoanID   int64
	LenderID string
	SQL      string
	Args     []any
}

// BuildRepaymentStatements renders the plans of every identified lender as
// two inserts each: the default schedule row and the batched monthly rows.
func BuildRepaymentStatements(l *loan.Loan, lenders []loan.Lender) []Statement {
	plans := BuildRepaymentPlan(l, lenders)
	return StatementsForPlans(plans)
}

func StatementsForPlans(plans []Plan) []Statement {
	statements := make([]Statement, 0, len(plans)*2)
	for _, p := range plans {
		statements = append(statements, p.DefaultScheduleStatement(), p.PaymentsStatement())
	}
	return statements
}

func (p Plan) DefaultScheduleStatement() Statement {
	return Statement{
		Kind:     KindDefaultSchedule,
		LoanID:   p.LoanID,
		LenderID: p.LenderID,
		SQL:      insertPaymentDefaultsSQL,
		Args:     []any{p.LoanID, p.LenderID, p.MonthlyAmount, p.FinalPayment, p.Discrepancy},
	}
}

func (p Plan) PaymentsStatement() Statement {
	var sb strings.Builder
	sb.WriteString(insertPaymentsPrefix)

	args := make([]any, 0, len(p.Payments)*paymentColumns)
	for i, payment := range p.Payments {
		n := i * paymentColumns
		if i > 0 {
			sb.WriteString(",\n")
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
		args = append(args, p.LoanID, p.LenderID, payment.Month, payment.Amount)
	}

	return Statement{
		Kind:     KindPayments,
		LoanID:   p.LoanID,
		LenderID: p.LenderID,
		SQL:      sb.String(),
		Args:     args,
	}
}

// String renders the statement followed by its bound values as a SQL
// comment, for display.
func (s Statement) String() string {
	var sb strings.Builder
	sb.WriteString(s.SQL)
	sb.WriteString(";\n-- args:")
	for i, arg := range s.Args {
		fmt.Fprintf(&sb, " $%d=%s", i+1, FormatArg(arg))
	}
	return sb.String()
}

func FormatArg(arg any) string {
	switch v := arg.(type) {
	case decimal.Decimal:
		return v.StringFixed(2)
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprint(v)
	}
}
