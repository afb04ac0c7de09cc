package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/maikekai/surf-house-backend/internal/config"
	"github.com/maikekai/surf-house-backend/internal/database"
	"github.com/maikekai/surf-house-backend/pkg/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentService(t *testing.T) (*PaymentConfirmationService, sqlmock.Sqlmock, *sqlx.DB) {
	t.Helper()
	db, mock := newMockDB(t)
	logger := newTestLogger()

	gateway := NewPaymentGatewayService(&config.PaymentConfig{
		Environment:   "sandbox",
		MerchantKey:   "mk-test",
		MerchantToken: "mt-test",
		Currency:      "USD",
	}, logger)

	svc := NewPaymentConfirmationService(
		database.NewBookingRepository(db),
		database.NewUserRepository(db),
		database.NewPaymentAuditRepository(db, logger),
		gateway,
		mailer.NewLogMailer(logger, "Mai Ke Kai <hola@maikekai.cr>"),
		logger,
	)
	return svc, mock, db
}

func webhookBody(uid, invoiceID, amount, status string) []byte {
	return []byte(fmt.Sprintf(
		`{"status":"success","uid":%q,"invoiceId":%q,"amount":%q,"currencyCode":"USD","paymentStatus":%q,"statusIndicator":"SI-1"}`,
		uid, invoiceID, amount, status,
	))
}

func expectBookingByPaymentUID(mock sqlmock.Sqlmock, uid string, bookingID, userID uuid.UUID, total float64) {
	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT.+FROM bookings WHERE payment_uid = \$1`).
		WithArgs(uid).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(
			bookingID, "MKK-20260110-A1B2C3", userID, now, now.Add(96*time.Hour), 2,
			"pending_payment", "pending", total, 0.0, "direct", nil,
			uid, "MKK-20260110-A1B2C3", nil, nil, nil,
			nil, now, now,
		))
}

func TestProcessWebhookDuplicateAcknowledgedWithoutSideEffects(t *testing.T) {
	svc, mock, _ := newPaymentService(t)

	// The idempotency key was seen before: only a duplicate-marked audit
	// row is written, the booking is never touched.
	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM payment_audits`).
		WithArgs("PAY-1", "webhook_received", "PAY-1-APPROVED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`(?s)INSERT INTO payment_audits`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.ProcessWebhook(context.Background(),
		webhookBody("PAY-1", "MKK-20260110-A1B2C3", "734.50", "APPROVED"),
		WebhookMeta{IPAddress: "203.0.113.9", UserAgent: "gateway/1.0"},
	)
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.False(t, result.Confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessWebhookApprovedConfirmsBooking(t *testing.T) {
	svc, mock, _ := newPaymentService(t)

	bookingID := uuid.New()
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM payment_audits`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	expectBookingByPaymentUID(mock, "PAY-2", bookingID, userID, 734.5)
	mock.ExpectExec(`(?s)UPDATE bookings.+SET status = 'confirmed', payment_status = 'paid'`).
		WithArgs(bookingID, 734.5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Success audit, confirmation email lookup, then the webhook audit.
	mock.ExpectExec(`(?s)INSERT INTO payment_audits`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`(?s)SELECT.+FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "full_name", "phone", "nationality", "role", "password_hash",
			"loyalty_points", "is_active", "last_login_at", "created_at", "updated_at",
		}).AddRow(userID, "ana@example.com", "Ana Mora", nil, nil, "guest", nil, 0, true, nil, now, now))
	mock.ExpectExec(`(?s)INSERT INTO payment_audits`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.ProcessWebhook(context.Background(),
		webhookBody("PAY-2", "MKK-20260110-A1B2C3", "734.50", "APPROVED"),
		WebhookMeta{IPAddress: "203.0.113.9", UserAgent: "gateway/1.0"},
	)
	require.NoError(t, err)
	assert.True(t, result.Confirmed)
	assert.False(t, result.AmountMismatch)
	assert.Equal(t, bookingID, result.BookingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessWebhookAmountMismatchNeverConfirms(t *testing.T) {
	svc, mock, _ := newPaymentService(t)

	bookingID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM payment_audits`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	expectBookingByPaymentUID(mock, "PAY-3", bookingID, userID, 734.5)
	// No UPDATE is expected: the mismatch leaves the booking pending.
	mock.ExpectExec(`(?s)INSERT INTO payment_audits`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.ProcessWebhook(context.Background(),
		webhookBody("PAY-3", "MKK-20260110-A1B2C3", "10.00", "APPROVED"),
		WebhookMeta{},
	)
	require.NoError(t, err)
	assert.True(t, result.AmountMismatch)
	assert.False(t, result.Confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessWebhookFailedMarksPaymentFailed(t *testing.T) {
	svc, mock, _ := newPaymentService(t)

	bookingID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM payment_audits`).
		WithArgs("PAY-4", "webhook_received", "PAY-4-FAILED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	// A failed payment cancels the booking, but only while the payment
	// is still pending.
	expectBookingByPaymentUID(mock, "PAY-4", bookingID, userID, 734.5)
	mock.ExpectExec(`(?s)UPDATE bookings.+SET status = 'cancelled', payment_status = 'failed'.+WHERE id = \$1 AND payment_status = 'pending'`).
		WithArgs(bookingID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT INTO payment_audits`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.ProcessWebhook(context.Background(),
		webhookBody("PAY-4", "MKK-20260110-A1B2C3", "734.50", "FAILED"),
		WebhookMeta{},
	)
	require.NoError(t, err)
	assert.Equal(t, "FAILED", result.Status)
	assert.False(t, result.Confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectBookingByID(mock sqlmock.Sqlmock, bookingID, userID uuid.UUID, status string, total float64) {
	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT.+FROM bookings WHERE id = \$1`).
		WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(
			bookingID, "MKK-20260110-A1B2C3", userID, now, now.Add(96*time.Hour), 2,
			status, "pending", total, 0.0, "direct", nil,
			nil, nil, nil, nil, nil,
			nil, now, now,
		))
	mock.ExpectQuery(`(?s)SELECT.+FROM booking_rooms WHERE booking_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "room_id", "bed_id", "price_per_night", "created_at"}))
	mock.ExpectQuery(`(?s)SELECT.+FROM booking_services WHERE booking_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "service_id", "quantity", "price_at_booking", "scheduled_date", "notes", "created_at"}))
}

func TestConfirmManuallyConfirmsPendingBooking(t *testing.T) {
	svc, mock, _ := newPaymentService(t)

	bookingID := uuid.New()
	userID := uuid.New()
	staffID := uuid.New()
	now := time.Now()

	expectBookingByID(mock, bookingID, userID, "pending_payment", 734.5)
	mock.ExpectExec(`(?s)UPDATE bookings.+SET status = 'confirmed', payment_status = 'paid'`).
		WithArgs(bookingID, 734.5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT INTO payment_audits`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`(?s)SELECT.+FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "full_name", "phone", "nationality", "role", "password_hash",
			"loyalty_points", "is_active", "last_login_at", "created_at", "updated_at",
		}).AddRow(userID, "ana@example.com", "Ana Mora", nil, nil, "guest", nil, 0, true, nil, now, now))
	expectBookingByID(mock, bookingID, userID, "confirmed", 734.5)

	booking, err := svc.ConfirmManually(context.Background(), bookingID, staffID, "paid cash at desk")
	require.NoError(t, err)
	assert.Equal(t, bookingID, booking.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmManuallyRejectsNonPendingBooking(t *testing.T) {
	svc, mock, _ := newPaymentService(t)

	bookingID := uuid.New()
	expectBookingByID(mock, bookingID, uuid.New(), "confirmed", 734.5)

	_, err := svc.ConfirmManually(context.Background(), bookingID, uuid.New(), "")
	require.Error(t, err)
	assert.IsType(t, &ConflictError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessWebhookRejectsMalformedPayload(t *testing.T) {
	svc, mock, _ := newPaymentService(t)

	// The parse failure itself is audited.
	mock.ExpectExec(`(?s)INSERT INTO payment_audits`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.ProcessWebhook(context.Background(), []byte(`{"uid":""}`), WebhookMeta{})
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
