package kiva

import (
	"log/slog"
	"net/http"
	"repayment-engine/internal/config"
	"repayment-engine/internal/domain/loan"
	"time"
)

const defaultTimeout = 10 * time.Second

// Factory builds one Client per unit of work. The underlying http.Client is
// shared, the funded-loan memo is not.
type Factory struct {
	cfg    config.KivaConfig
	http   *http.Client
	logger *slog.Logger
}

func NewFactory(cfg config.KivaConfig, logger *slog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		http:   newHTTPClient(cfg),
		logger: logger,
	}
}

func (f *Factory) NewClient() *Client {
	return NewClient(f.cfg, f.http, f.logger)
}

func (f *Factory) NewSource() loan.Source {
	return f.NewClient()
}

func newHTTPClient(cfg config.KivaConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

var (
	_ loan.Source        = (*Client)(nil)
	_ loan.SourceFactory = (*Factory)(nil)
)
