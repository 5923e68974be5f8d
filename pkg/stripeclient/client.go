/**
 * @description
 * This package provides a client for interacting with the Stripe API. It
 * encapsulates hosted Checkout Session creation, session retrieval for payment
 * verification, and webhook signature verification, exposing small
 * service-shaped types so the rest of the application never touches Stripe's
 * SDK types directly.
 *
 * @dependencies
 * - context, encoding/json, fmt: Standard Go libraries.
 * - github.com/stripe/stripe-go/v82: The official Stripe client library.
 */
package stripeclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Client wraps the Stripe API client with the service's webhook secret.
type Client struct {
	api           *client.API
	webhookSecret string
}

// NewClient creates a new Stripe client. The webhook secret may be empty when
// webhook handling is not configured.
func NewClient(secretKey, webhookSecret string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api, webhookSecret: webhookSecret}
}

// CheckoutParams carries everything needed to create a hosted checkout session
// for one sticker send.
type CheckoutParams struct {
	ImageURL   string
	Username   string
	Handle     string
	UnitAmount int64 // minor units
	IsTest     bool
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the subset of a created session the caller needs: the
// opaque id and the hosted redirect URL.
type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// SessionDetails is the verified view of a checkout session, including the
// metadata attached at creation time so the confirmation path can reconstruct
// which send to finalize.
type SessionDetails struct {
	ID            string            `json:"id"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// Paid reports whether the payment provider considers this session settled.
func (d *SessionDetails) Paid() bool {
	return d.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid)
}

// WebhookEvent is a verified webhook delivery: the event type plus the raw
// object payload for type-specific decoding.
type WebhookEvent struct {
	Type    string
	Payload json.RawMessage
}

// CreateCheckoutSession creates a payment-mode checkout session whose line item
// shows the uploaded image and whose metadata carries the send parameters for
// later retrieval.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	name := fmt.Sprintf("10 Custom Stickers to %s", p.Username)
	description := fmt.Sprintf("Send 10 personalized stickers to %s", p.Username)
	if p.IsTest {
		name += " (TEST MODE)"
		description = fmt.Sprintf("TEST: Free stickers to %s", p.Username)
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(p.SuccessURL),
		CancelURL:          stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(name),
						Description: stripe.String(description),
						Images:      stripe.StringSlice([]string{p.ImageURL}),
					},
					UnitAmount: stripe.Int64(p.UnitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("imageUrl", p.ImageURL)
	params.AddMetadata("username", p.Username)
	params.AddMetadata("handle", p.Handle)
	if p.IsTest {
		params.AddMetadata("isTest", "true")
	} else {
		params.AddMetadata("isTest", "false")
	}

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session create: %w", err)
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// RetrieveSession fetches a checkout session from Stripe. Stripe is the source
// of truth for whether the session was actually paid.
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (*SessionDetails, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	session, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session retrieve: %w", err)
	}

	details := &SessionDetails{
		ID:            session.ID,
		AmountTotal:   session.AmountTotal,
		Currency:      string(session.Currency),
		PaymentStatus: string(session.PaymentStatus),
		Metadata:      session.Metadata,
	}
	if session.CustomerDetails != nil {
		details.CustomerEmail = session.CustomerDetails.Email
	}
	if details.Metadata == nil {
		details.Metadata = map[string]string{}
	}
	return details, nil
}

// ConstructWebhookEvent verifies the signature of a raw webhook delivery
// against the configured secret and returns the decoded event.
//
// SECURITY: Signature verification is the authentication mechanism for the
// webhook endpoint.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification: %w", err)
	}
	return &WebhookEvent{Type: string(event.Type), Payload: event.Data.Raw}, nil
}

// DecodeSessionDetails decodes a checkout.session.completed payload into the
// same SessionDetails shape RetrieveSession returns.
func DecodeSessionDetails(payload json.RawMessage) (*SessionDetails, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session payload: %w", err)
	}
	details := &SessionDetails{
		ID:            session.ID,
		AmountTotal:   session.AmountTotal,
		Currency:      string(session.Currency),
		PaymentStatus: string(session.PaymentStatus),
		Metadata:      session.Metadata,
	}
	if session.CustomerDetails != nil {
		details.CustomerEmail = session.CustomerDetails.Email
	}
	if details.Metadata == nil {
		details.Metadata = map[string]string{}
	}
	return details, nil
}
