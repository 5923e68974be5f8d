package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/SerenityUX/sendmestickers/internal/app"
)

// Stripe webhook deliveries are small; cap the raw body read at 1 MiB.
const webhookBodyLimit = 1024 * 1024

// WebhookHandler receives payment-provider webhooks. The raw body is required
// for signature verification, so this handler reads it before any decoding.
// A bad signature is the caller's fault (400); a processing failure after
// verification is ours (500) and makes Stripe redeliver, which is safe because
// finalization is idempotent.
func (h *StickerHandlers) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookBodyLimit))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Unable to read request body")
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if err := h.service.ProcessWebhookEvent(r.Context(), payload, sigHeader); err != nil {
		if errors.Is(err, app.ErrWebhookSignature) {
			log.Printf("level=warn component=api endpoint=webhook msg=\"signature verification failed\" err=%v", err)
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Webhook Error: %v", err))
			return
		}
		log.Printf("level=error component=api endpoint=webhook msg=\"processing failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
