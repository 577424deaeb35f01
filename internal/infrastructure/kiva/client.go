package kiva

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"repayment-engine/internal/config"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/infrastructure/monitoring"
	"repayment-engine/internal/pkg/apperrors"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "http://api.kivaws.org/v1/"

	endpointFundedLoans = "funded_loans"
	endpointLoanDetail  = "loan_detail"
	endpointLenders     = "lenders"

	maxResponseBytes = 8 << 20
)

//go:embed fixtures/*.json
var fixtures embed.FS

// Client talks to the lending platform's public API. The funded-loan list is
// memoized for the lifetime of the instance; a Client must not be shared
// between goroutines.
type Client struct {
	baseURL  string
	http     *http.Client
	testMode bool
	logger   *slog.Logger

	fundedLoans       []loan.Loan
	fundedLoansLoaded bool
}

type envelope struct {
	Loans   []loan.Loan   `json:"loans"`
	Lenders []loan.Lender `json:"lenders"`
}

type errorEnvelope struct {
	Code    json.RawMessage `json:"code"`
	Message json.RawMessage `json:"message"`
}

func NewClient(cfg config.KivaConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = newHTTPClient(cfg)
	}
	return &Client{
		baseURL:  baseURL,
		http:     httpClient,
		testMode: cfg.TestMode,
		logger:   logger.With("component", "KivaClient"),
	}
}

// FetchFundedLoans returns loans with status funded. Only the first
// successful call reaches the network.
func (c *Client) FetchFundedLoans(ctx context.Context) ([]loan.Loan, error) {
	if c.fundedLoansLoaded {
		return c.fundedLoans, nil
	}

	env, err := c.call(ctx, endpointFundedLoans, "loans/search.json?status=funded")
	if err != nil {
		return nil, err
	}

	c.fundedLoans = env.Loans
	c.fundedLoansLoaded = true
	return c.fundedLoans, nil
}

// FetchLoanDetail returns the loan with its terms, or nil when the API
// answers with no matching entry.
func (c *Client) FetchLoanDetail(ctx context.Context, loanID string) (*loan.Loan, error) {
	id, err := ValidateLoanID(loanID)
	if err != nil {
		return nil, err
	}

	env, err := c.call(ctx, endpointLoanDetail, fmt.Sprintf("loans/%d.json", id))
	if err != nil {
		return nil, err
	}
	if len(env.Loans) == 0 {
		return nil, nil
	}
	return &env.Loans[0], nil
}

func (c *Client) FetchLenders(ctx context.Context, loanID string) ([]loan.Lender, error) {
	id, err := ValidateLoanID(loanID)
	if err != nil {
		return nil, err
	}

	env, err := c.call(ctx, endpointLenders, fmt.Sprintf("loans/%d/lenders.json", id))
	if err != nil {
		return nil, err
	}
	if env.Lenders == nil {
		return []loan.Lender{}, nil
	}
	return env.Lenders, nil
}

// ValidateLoanID accepts only a plain run of digits naming a positive id.
func ValidateLoanID(loanID string) (int64, error) {
	if loanID == "" {
		return 0, apperrors.NewValidationError("loanId", "loan id is required")
	}
	for _, r := range loanID {
		if r < '0' || r > '9' {
			return 0, apperrors.NewValidationError("loanId", "loan id must be numeric")
		}
	}
	id, err := strconv.ParseInt(loanID, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("loanId", "loan id must be a positive number")
	}
	return id, nil
}

func (c *Client) call(ctx context.Context, endpoint, path string) (*envelope, error) {
	startTime := time.Now()

	body, err := c.fetch(ctx, endpoint, path)
	var env *envelope
	if err == nil {
		env, err = decodeResponse(body)
	}

	monitoring.RecordAPICall(endpoint, outcome(err), time.Since(startTime))
	if err != nil {
		c.logger.ErrorContext(ctx, "Lending API call failed", "endpoint", endpoint, "path", path, "error", err)
		return nil, err
	}
	c.logger.DebugContext(ctx, "Lending API call succeeded", "endpoint", endpoint, "path", path, "duration", time.Since(startTime))
	return env, nil
}

func (c *Client) fetch(ctx context.Context, endpoint, path string) ([]byte, error) {
	if c.testMode {
		data, err := fixtures.ReadFile("fixtures/" + endpoint + ".json")
		if err != nil {
			return nil, apperrors.NewTransportError(err, "no fixture for "+endpoint)
		}
		return data, nil
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewTransportError(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewTransportError(err, "request to lending API failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.NewTransportError(err, "failed to read lending API response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if apiErr := decodeAPIError(body); apiErr != nil {
			return nil, apiErr
		}
		return nil, apperrors.NewTransportError(
			fmt.Errorf("status %d", resp.StatusCode),
			fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	return body, nil
}

// decodeResponse turns a response body into its data payload, or into an
// API error when the body carries both a code and a message.
func decodeResponse(body []byte) (*envelope, error) {
	if apiErr := decodeAPIError(body); apiErr != nil {
		return nil, apiErr
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperrors.NewTransportError(err, "failed to decode lending API response")
	}
	return &env, nil
}

func decodeAPIError(body []byte) error {
	var e errorEnvelope
	if err := json.Unmarshal(body, &e); err != nil {
		return nil
	}
	code := rawText(e.Code)
	if code == "" || isNull(e.Message) {
		return nil
	}
	return apperrors.NewAPIError(code, rawText(e.Message))
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// rawText returns a JSON string's contents, or any other JSON value as its
// literal text.
func rawText(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	raw = bytes.TrimSpace(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrAPI):
		return "api_error"
	default:
		return "transport_error"
	}
}
