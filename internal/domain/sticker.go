/**
 * @description
 * This file defines the core domain models for the sendmestickers service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and external service
 *   payloads ensures clear separation of concerns and type safety.
 * - Prices are carried as `int64` minor currency units (cents) to avoid
 *   floating-point inaccuracies with money.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Receiver is a registered sticker recipient. The handle is the primary
// identifier and is displayed to senders with a leading "@".
// This struct maps directly to the `receivers` table in the database.
type Receiver struct {
	Handle    string    `json:"handle"`
	Address   string    `json:"address"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Send is one sticker-delivery transaction linking an uploaded image to a
// receiver. It is created provisionally (unpurchased) before checkout and
// finalized with the Stripe session id once payment is confirmed.
// This struct maps directly to the `sends` table in the database.
type Send struct {
	ID              uuid.UUID `json:"id"`
	ImageURL        string    `json:"imageUrl"`
	ReceiverHandle  string    `json:"receiverHandle"`
	StripeSessionID *string   `json:"stripeSessionId,omitempty"`
	Purchased       bool      `json:"purchased"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateHandleRequest is the DTO for the receiver registration endpoint.
type CreateHandleRequest struct {
	Handle  string `json:"handle"`
	Address string `json:"address"`
	Email   string `json:"email"`
}

// SendStickerRequest is the DTO for creating a provisional send.
type SendStickerRequest struct {
	Handle   string `json:"handle"`
	ImageURL string `json:"imageUrl"`
}

// CheckoutSessionRequest is the DTO for creating a hosted checkout session.
type CheckoutSessionRequest struct {
	ImageURL     string `json:"imageUrl"`
	Username     string `json:"username"`
	Handle       string `json:"handle"`
	DiscountCode string `json:"discountCode,omitempty"`
}

// CompleteSendRequest is the DTO for the payment-confirmed finalization endpoint.
type CompleteSendRequest struct {
	Handle    string `json:"handle"`
	ImageURL  string `json:"imageUrl"`
	SessionID string `json:"sessionId"`
}

// UploadResult describes a successfully stored image.
type UploadResult struct {
	ImageURL string `json:"imageUrl"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}
