package loan

import "context"

// Source is where loans and their lenders come from. Implementations may
// memoize per instance and are not required to be safe for concurrent use.
type Source interface {
	FetchFundedLoans(ctx context.Context) ([]Loan, error)

	FetchLoanDetail(ctx context.Context, loanID string) (*Loan, error)

	FetchLenders(ctx context.Context, loanID string) ([]Lender, error)
}

// SourceFactory hands out a fresh Source per unit of work, so per-instance
// memoization never outlives one request or job run.
type SourceFactory interface {
	NewSource() Source
}
