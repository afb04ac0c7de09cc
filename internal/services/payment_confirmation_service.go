package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/database"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/maikekai/surf-house-backend/internal/utils"
	"github.com/maikekai/surf-house-backend/pkg/mailer"
	"github.com/sirupsen/logrus"
)

// PaymentConfirmationService owns the money side of a booking: opening
// checkout sessions, processing gateway webhooks, and reconciling by
// status poll. Every gateway interaction leaves a payment audit row.
type PaymentConfirmationService struct {
	bookingRepo *database.BookingRepository
	userRepo    *database.UserRepository
	auditRepo   *database.PaymentAuditRepository
	gateway     *PaymentGatewayService
	mail        mailer.Mailer
	logger      *logrus.Logger
}

// NewPaymentConfirmationService creates a new PaymentConfirmationService.
func NewPaymentConfirmationService(
	bookingRepo *database.BookingRepository,
	userRepo *database.UserRepository,
	auditRepo *database.PaymentAuditRepository,
	gateway *PaymentGatewayService,
	mail mailer.Mailer,
	logger *logrus.Logger,
) *PaymentConfirmationService {
	return &PaymentConfirmationService{
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		gateway:     gateway,
		mail:        mail,
		logger:      logger,
	}
}

// InitiatePaymentResponse is returned to the guest to continue payment.
type InitiatePaymentResponse struct {
	PaymentPage string  `json:"payment_page"`
	PaymentUID  string  `json:"payment_uid"`
	Amount      float64 `json:"amount"`
}

// InitiateBookingPayment opens a hosted checkout session for a pending
// booking. The booking reference doubles as the gateway invoice ID.
func (s *PaymentConfirmationService) InitiateBookingPayment(ctx context.Context, bookingID uuid.UUID) (*InitiatePaymentResponse, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, NewNotFoundError("booking", bookingID.String())
	}
	if booking.Status != models.BookingStatusPendingPayment {
		return nil, NewConflictError("booking is not awaiting payment")
	}

	user, err := s.userRepo.GetByID(ctx, booking.UserID)
	if err != nil {
		return nil, NewDataAccessError("load booking guest", err)
	}

	amount := fmt.Sprintf("%.2f", booking.TotalAmount)
	phone := ""
	if user.Phone != nil {
		phone = *user.Phone
	}

	initAudit := models.NewPaymentAudit(models.PaymentEventInitiated, models.PaymentSourceBackend).
		SetBooking(booking.ID).
		SetPaymentReference(booking.BookingReference)
	initAudit.ExpectedAmount = &booking.TotalAmount
	if err := s.auditRepo.Log(ctx, initAudit); err != nil {
		return nil, NewDataAccessError("log payment audit", err)
	}

	resp, err := s.gateway.InitiateCheckout(&CheckoutParams{
		InvoiceID:        booking.BookingReference,
		Amount:           amount,
		CustomerName:     user.FullName,
		CustomerEmail:    user.Email,
		CustomerPhone:    phone,
		OrderDescription: fmt.Sprintf("Mai Ke Kai stay %s", booking.BookingReference),
	})
	if err != nil {
		errAudit := models.NewPaymentAudit(models.PaymentEventError, models.PaymentSourceBackend).
			SetBooking(booking.ID).
			SetPaymentReference(booking.BookingReference).
			SetError(err.Error())
		if logErr := s.auditRepo.Log(ctx, errAudit); logErr != nil {
			s.logger.WithError(logErr).Error("Failed to log payment error audit")
		}
		return nil, err
	}

	if err := s.bookingRepo.SetPaymentInitiated(ctx, booking.ID, resp.UID, booking.BookingReference); err != nil {
		return nil, NewDataAccessError("store payment identifiers", err)
	}

	respAudit := models.NewPaymentAudit(models.PaymentEventResponse, models.PaymentSourceGatewayAPI).
		SetBooking(booking.ID).
		SetPaymentUID(resp.UID).
		SetPaymentReference(booking.BookingReference).
		SetResponsePayload(map[string]interface{}{
			"status":       resp.Status,
			"uid":          resp.UID,
			"payment_page": resp.PaymentPage,
		})
	if err := s.auditRepo.Log(ctx, respAudit); err != nil {
		s.logger.WithError(err).Error("Failed to log payment response audit")
	}

	return &InitiatePaymentResponse{
		PaymentPage: resp.PaymentPage,
		PaymentUID:  resp.UID,
		Amount:      booking.TotalAmount,
	}, nil
}

// WebhookMeta carries request metadata for the audit trail.
type WebhookMeta struct {
	IPAddress string
	UserAgent string
}

// WebhookResult reports what a webhook did.
type WebhookResult struct {
	BookingID      uuid.UUID `json:"booking_id"`
	Status         string    `json:"status"`
	Duplicate      bool      `json:"duplicate"`
	Confirmed      bool      `json:"confirmed"`
	AmountMismatch bool      `json:"amount_mismatch"`
}

// ProcessWebhook handles an asynchronous payment notification. Replayed
// webhooks are detected through the audit log and acknowledged without
// side effects; an amount mismatch is recorded for manual review and
// never confirms the booking.
func (s *PaymentConfirmationService) ProcessWebhook(ctx context.Context, rawBody []byte, meta WebhookMeta) (*WebhookResult, error) {
	start := time.Now()

	payload, err := s.gateway.ParseWebhook(rawBody)
	if err != nil {
		errAudit := models.NewPaymentAudit(models.PaymentEventError, models.PaymentSourceGatewayWebhook).
			SetRawBody(string(rawBody)).
			SetError(err.Error()).
			SetMetadata(meta.IPAddress, meta.UserAgent, "")
		if logErr := s.auditRepo.Log(ctx, errAudit); logErr != nil {
			s.logger.WithError(logErr).Error("Failed to log webhook error audit")
		}
		return nil, NewValidationError("payload", err.Error())
	}

	normalizedStatus := strings.ToUpper(payload.PaymentStatus)
	idempotencyKey := fmt.Sprintf("%s-%s", payload.UID, normalizedStatus)

	duplicate, err := s.auditRepo.CheckDuplicate(ctx, payload.UID, models.PaymentEventWebhookReceived, idempotencyKey)
	if err != nil {
		return nil, NewDataAccessError("check webhook duplicate", err)
	}
	if duplicate {
		dupAudit := models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceGatewayWebhook).
			SetPaymentUID(payload.UID).
			SetPaymentReference(payload.InvoiceID).
			SetPaymentStatus(payload.PaymentStatus).
			SetIdempotencyKey(idempotencyKey).
			SetRawBody(string(rawBody)).
			SetMetadata(meta.IPAddress, meta.UserAgent, "").
			MarkAsDuplicate().
			SetProcessingTime(start)
		if logErr := s.auditRepo.Log(ctx, dupAudit); logErr != nil {
			s.logger.WithError(logErr).Error("Failed to log duplicate webhook audit")
		}
		s.logger.WithField("payment_uid", payload.UID).Info("Duplicate webhook acknowledged")
		return &WebhookResult{Status: normalizedStatus, Duplicate: true}, nil
	}

	booking, err := s.bookingRepo.GetByPaymentUID(ctx, payload.UID)
	if err != nil {
		// The invoice ID is our booking reference; fall back to it when
		// the UID was never stored (e.g. the initiate response was lost).
		booking, err = s.bookingRepo.GetByReference(ctx, payload.InvoiceID)
	}
	if err != nil {
		errAudit := models.NewPaymentAudit(models.PaymentEventError, models.PaymentSourceGatewayWebhook).
			SetPaymentUID(payload.UID).
			SetPaymentReference(payload.InvoiceID).
			SetRawBody(string(rawBody)).
			SetError("no booking matches webhook").
			SetMetadata(meta.IPAddress, meta.UserAgent, "")
		if logErr := s.auditRepo.Log(ctx, errAudit); logErr != nil {
			s.logger.WithError(logErr).Error("Failed to log webhook error audit")
		}
		return nil, NewNotFoundError("booking", payload.InvoiceID)
	}

	received, parseErr := strconv.ParseFloat(payload.Amount, 64)

	audit := models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceGatewayWebhook).
		SetBooking(booking.ID).
		SetPaymentUID(payload.UID).
		SetPaymentReference(payload.InvoiceID).
		SetPaymentStatus(payload.PaymentStatus).
		SetIdempotencyKey(idempotencyKey).
		SetRawBody(string(rawBody)).
		SetMetadata(meta.IPAddress, meta.UserAgent, "").
		SetRequestPayload(map[string]interface{}{
			"device_info": utils.ParseUserAgent(meta.UserAgent),
		})
	if payload.TransactionID != "" {
		audit.GatewayTransactionID = &payload.TransactionID
	}

	amountsMatch := false
	if parseErr == nil {
		amountsMatch = audit.SetAmounts(booking.TotalAmount, received, payload.CurrencyCode)
	} else {
		audit.SetError(fmt.Sprintf("unparseable amount %q", payload.Amount))
	}

	result := &WebhookResult{BookingID: booking.ID, Status: normalizedStatus}

	switch normalizedStatus {
	case "APPROVED":
		if !amountsMatch {
			result.AmountMismatch = true
			audit.SetError("amount mismatch, booking left unconfirmed for manual review")
			s.logger.WithFields(logrus.Fields{
				"booking_id": booking.ID,
				"expected":   booking.TotalAmount,
				"received":   payload.Amount,
			}).Warn("Webhook amount mismatch")
			break
		}
		n, err := s.bookingRepo.ConfirmPayment(ctx, booking.ID, received)
		if err != nil {
			audit.SetError(err.Error())
			break
		}
		if n == 0 {
			// Already confirmed or no longer pending; acknowledged as-is.
			s.logger.WithField("booking_id", booking.ID).Info("Webhook for non-pending booking ignored")
			break
		}
		result.Confirmed = true
		s.logConfirmation(ctx, booking, payload)
		s.sendConfirmationEmail(ctx, booking)
	case "FAILED", "CANCELLED":
		if err := s.bookingRepo.MarkPaymentFailed(ctx, booking.ID); err != nil {
			audit.SetError(err.Error())
		}
	default:
		s.logger.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"status":     payload.PaymentStatus,
		}).Info("Webhook with unhandled payment status ignored")
	}

	audit.SetProcessingTime(start)
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		return nil, NewDataAccessError("log webhook audit", err)
	}
	return result, nil
}

func (s *PaymentConfirmationService) logConfirmation(ctx context.Context, booking *models.Booking, payload *WebhookPayload) {
	successAudit := models.NewPaymentAudit(models.PaymentEventSuccess, models.PaymentSourceSystem).
		SetBooking(booking.ID).
		SetPaymentUID(payload.UID).
		SetPaymentReference(payload.InvoiceID).
		SetPaymentStatus(payload.PaymentStatus)
	if err := s.auditRepo.Log(ctx, successAudit); err != nil {
		s.logger.WithError(err).Error("Failed to log payment success audit")
	}
	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"payment_uid": payload.UID,
	}).Info("Booking confirmed by webhook")
}

// ReconcileByStatusCheck polls the gateway for a booking whose webhook
// may have been lost and applies the same transition rules.
func (s *PaymentConfirmationService) ReconcileByStatusCheck(ctx context.Context, bookingID uuid.UUID, statusIndicator string) (*WebhookResult, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, NewNotFoundError("booking", bookingID.String())
	}
	if booking.PaymentUID == nil {
		return nil, NewConflictError("booking has no payment session to reconcile")
	}

	resp, err := s.gateway.CheckStatus(*booking.PaymentUID, statusIndicator)
	if err != nil {
		return nil, err
	}

	normalizedStatus := strings.ToUpper(resp.PaymentStatus)
	audit := models.NewPaymentAudit(models.PaymentEventStatusCheck, models.PaymentSourceGatewayAPI).
		SetBooking(booking.ID).
		SetPaymentUID(*booking.PaymentUID).
		SetPaymentReference(booking.BookingReference).
		SetPaymentStatus(resp.PaymentStatus)

	received, parseErr := strconv.ParseFloat(resp.Amount, 64)
	amountsMatch := false
	if parseErr == nil {
		amountsMatch = audit.SetAmounts(booking.TotalAmount, received, "")
	}

	result := &WebhookResult{BookingID: booking.ID, Status: normalizedStatus}
	switch normalizedStatus {
	case "APPROVED":
		if !amountsMatch {
			result.AmountMismatch = true
			audit.SetError("amount mismatch on status check")
			break
		}
		n, err := s.bookingRepo.ConfirmPayment(ctx, booking.ID, received)
		if err != nil {
			audit.SetError(err.Error())
			break
		}
		if n > 0 {
			result.Confirmed = true
			s.sendConfirmationEmail(ctx, booking)
		}
	case "FAILED", "CANCELLED":
		if err := s.bookingRepo.MarkPaymentFailed(ctx, booking.ID); err != nil {
			audit.SetError(err.Error())
		}
	}

	if err := s.auditRepo.Log(ctx, audit); err != nil {
		return nil, NewDataAccessError("log status check audit", err)
	}
	return result, nil
}

// ConfirmManually marks a pending booking as paid for money received
// outside the gateway, e.g. cash or a bank transfer at the front desk.
func (s *PaymentConfirmationService) ConfirmManually(ctx context.Context, bookingID uuid.UUID, staffID uuid.UUID, note string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, NewNotFoundError("booking", bookingID.String())
	}
	if booking.Status != models.BookingStatusPendingPayment {
		return nil, NewConflictError("booking is not awaiting payment")
	}

	n, err := s.bookingRepo.ConfirmPayment(ctx, booking.ID, booking.TotalAmount)
	if err != nil {
		return nil, NewDataAccessError("confirm payment", err)
	}
	if n == 0 {
		return nil, NewConflictError("booking is not awaiting payment")
	}

	audit := models.NewPaymentAudit(models.PaymentEventSuccess, models.PaymentSourceBackend).
		SetBooking(booking.ID).
		SetPaymentReference(booking.BookingReference).
		SetRequestPayload(map[string]interface{}{
			"confirmed_by": staffID.String(),
			"note":         note,
		})
	audit.ExpectedAmount = &booking.TotalAmount
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Failed to log manual confirmation audit")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"confirmed_by": staffID,
	}).Info("Booking confirmed manually")
	s.sendConfirmationEmail(ctx, booking)

	confirmed, err := s.bookingRepo.GetByID(ctx, booking.ID)
	if err != nil {
		return nil, NewDataAccessError("reload booking", err)
	}
	return confirmed, nil
}

func (s *PaymentConfirmationService) sendConfirmationEmail(ctx context.Context, booking *models.Booking) {
	user, err := s.userRepo.GetByID(ctx, booking.UserID)
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to load guest for confirmation email")
		return
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Booking %s confirmed - see you in Tamarindo!", booking.BookingReference),
		Body: fmt.Sprintf(
			"Hola %s!\n\nPayment received, your booking %s is confirmed.\nCheck-in: %s\nCheck-out: %s\n\nPura vida,\nMai Ke Kai Surf House",
			user.FullName,
			booking.BookingReference,
			booking.CheckIn.Format(models.DateLayout),
			booking.CheckOut.Format(models.DateLayout),
		),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to send confirmation email")
	}
}
