package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JSONB maps a postgres jsonb column to a generic payload.
type JSONB map[string]interface{}

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner.
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
	return json.Unmarshal(b, j)
}

// PaymentEventType classifies a payment audit entry.
type PaymentEventType string

const (
	PaymentEventInitiated       PaymentEventType = "payment_initiated"
	PaymentEventResponse        PaymentEventType = "payment_response"
	PaymentEventWebhookReceived PaymentEventType = "webhook_received"
	PaymentEventStatusCheck     PaymentEventType = "status_check"
	PaymentEventSuccess         PaymentEventType = "payment_success"
	PaymentEventFailed          PaymentEventType = "payment_failed"
	PaymentEventCancelled       PaymentEventType = "payment_cancelled"
	PaymentEventIgnored         PaymentEventType = "payment_ignored"
	PaymentEventError           PaymentEventType = "error"
)

// PaymentEventSource identifies where the event originated.
type PaymentEventSource string

const (
	PaymentSourceBackend        PaymentEventSource = "backend"
	PaymentSourceGatewayWebhook PaymentEventSource = "gateway_webhook"
	PaymentSourceGatewayAPI     PaymentEventSource = "gateway_api"
	PaymentSourceSystem         PaymentEventSource = "system"
)

// PaymentAudit is an immutable log entry for a payment event. Rows are
// only ever inserted; the webhook handler uses them for idempotency.
type PaymentAudit struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	BookingID        *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`
	PaymentUID       *string    `json:"payment_uid,omitempty" db:"payment_uid"`
	PaymentReference *string    `json:"payment_reference,omitempty" db:"payment_reference"`

	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	// Amount verification
	ExpectedAmount *float64 `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *float64 `json:"received_amount,omitempty" db:"received_amount"`
	Currency       *string  `json:"currency,omitempty" db:"currency"`
	AmountsMatch   *bool    `json:"amounts_match,omitempty" db:"amounts_match"`

	PaymentStatus        *string `json:"payment_status,omitempty" db:"payment_status"`
	GatewayTransactionID *string `json:"gateway_transaction_id,omitempty" db:"gateway_transaction_id"`

	// Raw payloads, kept for debugging disputes
	RequestPayload  JSONB   `json:"request_payload,omitempty" db:"request_payload"`
	ResponsePayload JSONB   `json:"response_payload,omitempty" db:"response_payload"`
	RawBody         *string `json:"raw_body,omitempty" db:"raw_body"`

	HTTPStatusCode *int    `json:"http_status_code,omitempty" db:"http_status_code"`
	HTTPMethod     *string `json:"http_method,omitempty" db:"http_method"`
	EndpointURL    *string `json:"endpoint_url,omitempty" db:"endpoint_url"`

	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	ProcessingTimeMs *int    `json:"processing_time_ms,omitempty" db:"processing_time_ms"`
	IsDuplicate      bool    `json:"is_duplicate" db:"is_duplicate"`
	IdempotencyKey   *string `json:"idempotency_key,omitempty" db:"idempotency_key"`

	IPAddress     *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent     *string `json:"user_agent,omitempty" db:"user_agent"`
	CorrelationID *string `json:"correlation_id,omitempty" db:"correlation_id"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}

// NewPaymentAudit creates an audit entry with the required fields.
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetBooking links the audit entry to a booking.
func (pa *PaymentAudit) SetBooking(bookingID uuid.UUID) *PaymentAudit {
	pa.BookingID = &bookingID
	return pa
}

// SetPaymentUID sets the gateway payment UID.
func (pa *PaymentAudit) SetPaymentUID(uid string) *PaymentAudit {
	pa.PaymentUID = &uid
	return pa
}

// SetPaymentReference sets our merchant reference.
func (pa *PaymentAudit) SetPaymentReference(ref string) *PaymentAudit {
	pa.PaymentReference = &ref
	return pa
}

// SetAmounts records expected and received amounts and returns whether
// they match within a one-cent tolerance.
func (pa *PaymentAudit) SetAmounts(expected, received float64, currency string) bool {
	pa.ExpectedAmount = &expected
	pa.ReceivedAmount = &received
	pa.Currency = &currency

	const tolerance = 0.01
	diff := expected - received
	if diff < 0 {
		diff = -diff
	}
	match := diff < tolerance
	pa.AmountsMatch = &match
	return match
}

// SetPaymentStatus records the gateway's reported status.
func (pa *PaymentAudit) SetPaymentStatus(status string) *PaymentAudit {
	pa.PaymentStatus = &status
	return pa
}

// SetError records a processing error.
func (pa *PaymentAudit) SetError(message string) *PaymentAudit {
	pa.ErrorMessage = &message
	return pa
}

// SetRawBody stores the raw payload before parsing.
func (pa *PaymentAudit) SetRawBody(body string) *PaymentAudit {
	pa.RawBody = &body
	return pa
}

// SetHTTPDetails records the outbound call that produced this entry.
func (pa *PaymentAudit) SetHTTPDetails(method, url string, statusCode int) *PaymentAudit {
	pa.HTTPMethod = &method
	pa.EndpointURL = &url
	pa.HTTPStatusCode = &statusCode
	return pa
}

// SetRequestPayload stores the outbound request body.
func (pa *PaymentAudit) SetRequestPayload(payload map[string]interface{}) *PaymentAudit {
	pa.RequestPayload = JSONB(payload)
	return pa
}

// SetResponsePayload stores the inbound response body.
func (pa *PaymentAudit) SetResponsePayload(payload map[string]interface{}) *PaymentAudit {
	pa.ResponsePayload = JSONB(payload)
	return pa
}

// SetMetadata records caller metadata when present.
func (pa *PaymentAudit) SetMetadata(ip, userAgent, correlationID string) *PaymentAudit {
	if ip != "" {
		pa.IPAddress = &ip
	}
	if userAgent != "" {
		pa.UserAgent = &userAgent
	}
	if correlationID != "" {
		pa.CorrelationID = &correlationID
	}
	return pa
}

// SetProcessingTime stamps the entry with elapsed processing time.
func (pa *PaymentAudit) SetProcessingTime(startTime time.Time) *PaymentAudit {
	durationMs := int(time.Since(startTime).Milliseconds())
	pa.ProcessingTimeMs = &durationMs
	now := time.Now()
	pa.ProcessedAt = &now
	return pa
}

// MarkAsDuplicate flags a replayed event.
func (pa *PaymentAudit) MarkAsDuplicate() *PaymentAudit {
	pa.IsDuplicate = true
	return pa
}

// SetIdempotencyKey sets the dedupe key for webhook replays.
func (pa *PaymentAudit) SetIdempotencyKey(key string) *PaymentAudit {
	pa.IdempotencyKey = &key
	return pa
}
