package services

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/maikekai/surf-house-backend/internal/config"
	"github.com/sirupsen/logrus"
)

// GatewayEnvironmentURLs maps payment environments to the hosted
// checkout endpoints.
var GatewayEnvironmentURLs = map[string]string{
	"sandbox":    "https://sandbox.gateway.tropipay.cr/ipg/sandbox",
	"production": "https://gateway.tropipay.cr/ipg/pro",
}

// PaymentGatewayService talks to the hosted-checkout payment gateway.
// Guests are redirected to the gateway's payment page; the result comes
// back through the webhook and through status polls.
type PaymentGatewayService struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
}

// checkoutRequest is the wire payload for opening a checkout session.
// The merchant token is never sent; it only feeds the checkValue hash.
type checkoutRequest struct {
	MerchantKey string `json:"merchantKey"`

	ReturnURL  string `json:"returnUrl"`
	WebhookURL string `json:"webhookUrl,omitempty"`

	PaymentType  int    `json:"paymentType"` // 1 = one-time
	InvoiceID    string `json:"invoiceId"`
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`

	OrderDescription string `json:"orderDescription,omitempty"`

	CustomerFirstName string `json:"customerFirstName"`
	CustomerLastName  string `json:"customerLastName"`
	CustomerEmail     string `json:"customerEmail"`
	CustomerPhone     string `json:"customerMobilePhone"`

	BillingAddressCountry string `json:"billingAddressCountry"`

	CheckValue string `json:"checkValue"`

	IntegrationType    string `json:"integrationType"`
	IntegrationVersion string `json:"integrationVersion"`
}

// CheckoutResponse is the gateway's answer to a checkout request.
type CheckoutResponse struct {
	Status          string `json:"status"`
	UID             string `json:"uid"`
	StatusIndicator string `json:"statusIndicator"`
	PaymentPage     string `json:"paymentPage"`
	Message         string `json:"message,omitempty"`
}

// StatusResponse is the gateway's answer to a status poll.
type StatusResponse struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"` // "PENDING", "APPROVED", "FAILED", "CANCELLED"
	Amount        string `json:"amount"`
	InvoiceID     string `json:"invoiceId"`
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message,omitempty"`
}

// WebhookPayload is the asynchronous payment notification.
type WebhookPayload struct {
	Status          string `json:"status"`
	UID             string `json:"uid"`
	InvoiceID       string `json:"invoiceId"`
	Amount          string `json:"amount"`
	CurrencyCode    string `json:"currencyCode"`
	PaymentStatus   string `json:"paymentStatus"` // "APPROVED", "FAILED", "CANCELLED"
	TransactionID   string `json:"transactionId,omitempty"`
	PaymentMethod   string `json:"paymentMethod,omitempty"`
	CardLastFour    string `json:"cardLastFour,omitempty"`
	StatusIndicator string `json:"statusIndicator"`
}

// NewPaymentGatewayService creates the gateway client.
func NewPaymentGatewayService(cfg *config.PaymentConfig, logger *logrus.Logger) *PaymentGatewayService {
	return &PaymentGatewayService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GenerateCheckValue builds the request signature:
// hash1 = SHA512(merchantToken) uppercase hex, then
// SHA512("merchantKey|invoiceId|amount|currencyCode|hash1") uppercase hex.
func (s *PaymentGatewayService) GenerateCheckValue(invoiceID, amount, currencyCode string) string {
	hash1 := sha512.Sum512([]byte(s.config.MerchantToken))
	hash1Hex := strings.ToUpper(hex.EncodeToString(hash1[:]))

	data := fmt.Sprintf("%s|%s|%s|%s|%s",
		s.config.MerchantKey,
		invoiceID,
		amount,
		currencyCode,
		hash1Hex,
	)
	hash2 := sha512.Sum512([]byte(data))
	return strings.ToUpper(hex.EncodeToString(hash2[:]))
}

// CheckoutParams carries everything needed to open a checkout session.
type CheckoutParams struct {
	InvoiceID        string
	Amount           string
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	OrderDescription string
}

// InitiateCheckout opens a hosted checkout session and returns the
// payment page URL together with the gateway correlation identifiers.
func (s *PaymentGatewayService) InitiateCheckout(params *CheckoutParams) (*CheckoutResponse, error) {
	if !s.IsConfigured() {
		return nil, NewExternalProviderError("payment-gateway", "missing merchant credentials", nil)
	}

	currency := s.config.Currency
	checkValue := s.GenerateCheckValue(params.InvoiceID, params.Amount, currency)

	firstName, lastName := splitName(params.CustomerName)
	if lastName == "" {
		lastName = "." // gateway requires a last name
	}
	phone := params.CustomerPhone
	if phone == "" {
		phone = "00000000"
	}

	endpointURL := s.endpointURL()
	request := &checkoutRequest{
		MerchantKey:           s.config.MerchantKey,
		ReturnURL:             s.config.ReturnURL,
		WebhookURL:            s.config.NotifyURL,
		PaymentType:           1,
		InvoiceID:             params.InvoiceID,
		Amount:                params.Amount,
		CurrencyCode:          currency,
		OrderDescription:      params.OrderDescription,
		CustomerFirstName:     firstName,
		CustomerLastName:      lastName,
		CustomerEmail:         params.CustomerEmail,
		CustomerPhone:         phone,
		BillingAddressCountry: "CR",
		CheckValue:            checkValue,
		IntegrationType:       "MaiKeKai",
		IntegrationVersion:    "1.0.0",
	}

	s.logger.WithFields(logrus.Fields{
		"invoice_id": params.InvoiceID,
		"amount":     params.Amount,
		"currency":   currency,
		"endpoint":   endpointURL,
	}).Info("Opening gateway checkout session")

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	resp, err := s.client.Post(endpointURL, "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		s.logger.WithError(err).Error("Gateway checkout call failed")
		return nil, NewExternalProviderError("payment-gateway", "checkout call failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewExternalProviderError("payment-gateway", "failed to read checkout response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewExternalProviderError("payment-gateway",
			fmt.Sprintf("checkout returned status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var checkoutResp CheckoutResponse
	if err := json.Unmarshal(body, &checkoutResp); err != nil {
		return nil, NewExternalProviderError("payment-gateway", "failed to parse checkout response", err)
	}

	// "PENDING" means the session is open and waiting for the guest.
	if checkoutResp.Status != "success" && checkoutResp.Status != "PENDING" {
		msg := checkoutResp.Message
		if msg == "" {
			msg = fmt.Sprintf("status=%s", checkoutResp.Status)
		}
		return nil, NewExternalProviderError("payment-gateway", "checkout rejected: "+msg, nil)
	}
	if checkoutResp.PaymentPage == "" {
		return nil, NewExternalProviderError("payment-gateway", "no payment page URL returned", nil)
	}

	s.logger.WithFields(logrus.Fields{
		"uid":          checkoutResp.UID,
		"payment_page": checkoutResp.PaymentPage,
	}).Info("Gateway checkout session opened")

	return &checkoutResp, nil
}

// CheckStatus polls the gateway for the current state of a payment.
func (s *PaymentGatewayService) CheckStatus(uid, statusIndicator string) (*StatusResponse, error) {
	request := map[string]string{
		"uid":             uid,
		"statusIndicator": statusIndicator,
	}
	statusURL := strings.Replace(s.endpointURL(), "/ipg/", "/check-status/", 1)

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status request: %w", err)
	}

	resp, err := s.client.Post(statusURL, "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, NewExternalProviderError("payment-gateway", "status call failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewExternalProviderError("payment-gateway", "failed to read status response", err)
	}

	var statusResp StatusResponse
	if err := json.Unmarshal(body, &statusResp); err != nil {
		return nil, NewExternalProviderError("payment-gateway", "failed to parse status response", err)
	}
	return &statusResp, nil
}

// ParseWebhook validates and parses a webhook body.
func (s *PaymentGatewayService) ParseWebhook(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if payload.UID == "" || payload.InvoiceID == "" {
		return nil, fmt.Errorf("webhook missing required fields")
	}

	s.logger.WithFields(logrus.Fields{
		"uid":            payload.UID,
		"invoice_id":     payload.InvoiceID,
		"payment_status": payload.PaymentStatus,
		"amount":         payload.Amount,
	}).Info("Webhook payload parsed")

	return &payload, nil
}

// IsApproved reports whether a webhook signals a successful payment.
func (s *PaymentGatewayService) IsApproved(payload *WebhookPayload) bool {
	return strings.ToUpper(payload.PaymentStatus) == "APPROVED"
}

// IsConfigured reports whether merchant credentials are present.
func (s *PaymentGatewayService) IsConfigured() bool {
	return s.config.MerchantKey != "" && s.config.MerchantToken != ""
}

func (s *PaymentGatewayService) endpointURL() string {
	if url, ok := GatewayEnvironmentURLs[s.config.Environment]; ok {
		return url
	}
	return GatewayEnvironmentURLs["sandbox"]
}

func splitName(fullName string) (firstName, lastName string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "Guest", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
