/**
 * @description
 * This file contains the payment confirmation path: verifying a checkout
 * session against Stripe and durably finalizing the send at most once per
 * session id. Both the client-side success page and the Stripe webhook funnel
 * into FinalizeSend, so duplicate deliveries converge to one record.
 *
 * @dependencies
 * - context, log, time: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/stripeclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/SerenityUX/sendmestickers/internal/domain"
	"github.com/SerenityUX/sendmestickers/internal/store"
	"github.com/SerenityUX/sendmestickers/pkg/rabbitmq"
	"github.com/SerenityUX/sendmestickers/pkg/stripeclient"
)

// VerifySession retrieves the checkout session from Stripe and confirms it was
// actually paid. Stripe owns session state and is the source of truth here.
func (s *Service) VerifySession(ctx context.Context, sessionID string) (*stripeclient.SessionDetails, error) {
	details, err := s.payments.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !details.Paid() {
		return nil, ErrPaymentNotVerified
	}
	return details, nil
}

// FinalizeSend durably records the purchase for a paid checkout session
// exactly once. Replays (user refresh, webhook plus client both firing,
// concurrent duplicates) observe the first successful insert and return it
// unchanged with alreadyProcessed=true.
func (s *Service) FinalizeSend(ctx context.Context, handle, imageURL, sessionID string) (*domain.Send, bool, error) {
	// Fast path: this session has already been processed.
	existing, err := s.repo.FindSendBySessionID(ctx, sessionID)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, store.ErrSendNotFound) {
		return nil, false, err
	}

	// Verify the receiver still exists before writing.
	if _, err := s.repo.FindReceiverByHandle(ctx, handle); err != nil {
		return nil, false, err
	}

	send, inserted, err := s.repo.FinalizeSend(ctx, imageURL, handle, sessionID)
	if err != nil {
		return nil, false, err
	}

	if inserted {
		log.Printf("level=info component=app op=finalize_send outcome=recorded session_id=%s handle=%s", sessionID, handle)
		s.publishEvent(ctx, "send.finalized", rabbitmq.SendFinalizedEvent{
			SendID:          send.ID.String(),
			ReceiverHandle:  send.ReceiverHandle,
			ImageURL:        send.ImageURL,
			StripeSessionID: sessionID,
			Timestamp:       time.Now().UTC(),
		})
	} else {
		log.Printf("level=info component=app op=finalize_send outcome=already_processed session_id=%s", sessionID)
	}

	return send, !inserted, nil
}

// ProcessWebhookEvent verifies and dispatches a raw Stripe webhook delivery.
// checkout.session.completed finalizes the send through the same idempotent
// path as the client confirmation; other known event types are logged and
// acknowledged; unknown types are logged and ignored.
func (s *Service) ProcessWebhookEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.payments.ConstructWebhookEvent(payload, sigHeader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}

	switch event.Type {
	case "checkout.session.completed":
		details, err := stripeclient.DecodeSessionDetails(event.Payload)
		if err != nil {
			return err
		}
		handle := details.Metadata["handle"]
		imageURL := details.Metadata["imageUrl"]
		if handle == "" || imageURL == "" {
			log.Printf("level=warn component=app op=webhook msg=\"completed session missing metadata; skipping finalize\" session_id=%s", details.ID)
			return nil
		}
		if _, _, err := s.FinalizeSend(ctx, handle, imageURL, details.ID); err != nil {
			return err
		}

	case "payment_intent.succeeded":
		log.Printf("level=info component=app op=webhook event=payment_intent.succeeded")

	case "payment_intent.payment_failed":
		log.Printf("level=warn component=app op=webhook event=payment_intent.payment_failed")

	default:
		log.Printf("level=info component=app op=webhook msg=\"unhandled event type\" type=%s", event.Type)
	}

	return nil
}
