package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// PaymentAuditRepository handles the immutable payment event log.
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new PaymentAuditRepository.
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log inserts a payment audit entry. Payment events must always be
// recorded, so failures are logged loudly and returned.
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, booking_id, payment_uid, payment_reference,
			event_type, event_source,
			expected_amount, received_amount, currency, amounts_match,
			payment_status, gateway_transaction_id,
			request_payload, response_payload, raw_body,
			http_status_code, http_method, endpoint_url,
			error_message,
			processing_time_ms, is_duplicate, idempotency_key,
			ip_address, user_agent, correlation_id,
			created_at, processed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9, $10,
			$11, $12,
			$13, $14, $15,
			$16, $17, $18,
			$19,
			$20, $21, $22,
			$23, $24, $25,
			$26, $27
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.BookingID, audit.PaymentUID, audit.PaymentReference,
		audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ReceivedAmount, audit.Currency, audit.AmountsMatch,
		audit.PaymentStatus, audit.GatewayTransactionID,
		audit.RequestPayload, audit.ResponsePayload, audit.RawBody,
		audit.HTTPStatusCode, audit.HTTPMethod, audit.EndpointURL,
		audit.ErrorMessage,
		audit.ProcessingTimeMs, audit.IsDuplicate, audit.IdempotencyKey,
		audit.IPAddress, audit.UserAgent, audit.CorrelationID,
		audit.CreatedAt, audit.ProcessedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type":  audit.EventType,
			"payment_uid": audit.PaymentUID,
		}).Error("Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":    audit.ID,
		"event_type":  audit.EventType,
		"payment_uid": audit.PaymentUID,
	}).Debug("Payment audit logged")

	return nil
}

// CheckDuplicate reports whether a webhook event with the same payment
// UID, event type and idempotency key was already processed.
func (r *PaymentAuditRepository) CheckDuplicate(ctx context.Context, paymentUID string, eventType models.PaymentEventType, idempotencyKey string) (bool, error) {
	if idempotencyKey == "" {
		idempotencyKey = fmt.Sprintf("%s-%s", paymentUID, eventType)
	}

	var count int
	query := `
		SELECT COUNT(*) FROM payment_audits
		WHERE payment_uid = $1
		AND event_type = $2
		AND idempotency_key = $3
		AND is_duplicate = FALSE`

	err := r.db.GetContext(ctx, &count, query, paymentUID, eventType, idempotencyKey)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}

	return count > 0, nil
}

// GetByPaymentUID retrieves all audit entries for one gateway payment.
func (r *PaymentAuditRepository) GetByPaymentUID(ctx context.Context, paymentUID string) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE payment_uid = $1
		ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &audits, query, paymentUID); err != nil {
		return nil, fmt.Errorf("failed to get audits by payment UID: %w", err)
	}
	return audits, nil
}

// GetByBookingID retrieves all audit entries for one booking.
func (r *PaymentAuditRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE booking_id = $1
		ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &audits, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to get audits by booking ID: %w", err)
	}
	return audits, nil
}

// GetAmountMismatches retrieves audits where the gateway's amount did not
// match ours. Reviewed manually before any refund.
func (r *PaymentAuditRepository) GetAmountMismatches(ctx context.Context, limit int) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE amounts_match = FALSE
		ORDER BY created_at DESC
		LIMIT $1`

	if err := r.db.SelectContext(ctx, &audits, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get amount mismatches: %w", err)
	}
	return audits, nil
}
