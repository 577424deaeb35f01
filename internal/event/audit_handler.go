package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/domain/repayment"
	"repayment-engine/internal/infrastructure/monitoring"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
)

type IntegrityVerifier interface {
	Verify(ctx context.Context, src loan.Source, loanID string) (*repayment.IntegrityReport, error)
}

// IntegrityAuditHandler re-checks the persisted lender totals of every loan
// announced on the schedule persisted routing key.
type IntegrityAuditHandler struct {
	verifier IntegrityVerifier
	sources  loan.SourceFactory
	logger   *slog.Logger
}

func NewIntegrityAuditHandler(verifier IntegrityVerifier, sources loan.SourceFactory, logger *slog.Logger) *IntegrityAuditHandler {
	return &IntegrityAuditHandler{
		verifier: verifier,
		sources:  sources,
		logger:   logger.With("component", "IntegrityAuditHandler"),
	}
}

func (h *IntegrityAuditHandler) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	logCtx := h.logger.With(slog.Uint64("deliveryTag", d.DeliveryTag), slog.String("routingKey", d.RoutingKey))

	if d.RoutingKey != RoutingKeySchedulePersisted {
		logCtx.WarnContext(ctx, "Received message with unknown routing key, discarding")
		monitoring.RecordIntegrityAudit("rejected")
		_ = d.Reject(false)
		return
	}

	var event repayment.SchedulePersistedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil || event.LoanID <= 0 {
		logCtx.ErrorContext(ctx, "Failed to decode schedule persisted event", "error", err, "body", string(d.Body))
		monitoring.RecordIntegrityAudit("rejected")
		_ = d.Nack(false, false)
		return
	}

	logCtx = logCtx.With(slog.Int64("loanID", event.LoanID))
	report, err := h.verifier.Verify(ctx, h.sources.NewSource(), strconv.FormatInt(event.LoanID, 10))
	if err != nil {
		logCtx.ErrorContext(ctx, "Integrity audit failed", "error", err)
		monitoring.RecordIntegrityAudit("error")
		_ = d.Nack(false, false)
		return
	}

	if report.OK() {
		logCtx.InfoContext(ctx, "Persisted schedule matches expected lender totals", "lenders", len(report.Lenders))
		monitoring.RecordIntegrityAudit("match")
	} else {
		for _, c := range report.Lenders {
			if !c.OK() {
				logCtx.WarnContext(ctx, "Lender total mismatch",
					"lenderID", c.LenderID,
					"expected", c.Expected.StringFixed(2),
					"persisted", c.Persisted.StringFixed(2))
			}
		}
		monitoring.RecordIntegrityAudit("mismatch")
	}

	if err := d.Ack(false); err != nil {
		logCtx.ErrorContext(ctx, "Failed to acknowledge message", "error", err)
	}
}
