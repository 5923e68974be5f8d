/**
 * @description
 * This file contains the core business logic for the sendmestickers service. The
 * `Service` struct orchestrates handle registration, image uploads, provisional
 * sends, and checkout session creation, coordinating between the database
 * repository, the Stripe client, the object storage client, and the message broker.
 *
 * @dependencies
 * - context, errors, fmt, log, path/filepath, regexp, strings, time: Standard Go libraries.
 * - github.com/google/uuid: For generating object storage keys.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/stripeclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SerenityUX/sendmestickers/internal/domain"
	"github.com/SerenityUX/sendmestickers/internal/store"
	"github.com/SerenityUX/sendmestickers/pkg/rabbitmq"
	"github.com/SerenityUX/sendmestickers/pkg/stripeclient"
)

// MaxUploadBytes is the inclusive upper bound on uploaded image size (5 MiB).
const MaxUploadBytes = 5 * 1024 * 1024

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrNoFile             = errors.New("no image file provided")
	ErrInvalidFileType    = errors.New("only image files are allowed")
	ErrFileTooLarge       = errors.New("file too large")
	ErrStorageUnavailable = errors.New("object storage is not configured")
	ErrPaymentNotVerified = errors.New("payment not completed")
	ErrWebhookSignature   = errors.New("webhook signature verification failed")
)

// Matches the browser-side check: non-empty local part, domain, and TLD,
// no whitespace or extra @.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// PaymentProvider abstracts the hosted checkout operations the service needs
// from Stripe.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, p stripeclient.CheckoutParams) (*stripeclient.CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*stripeclient.SessionDetails, error)
	ConstructWebhookEvent(payload []byte, sigHeader string) (*stripeclient.WebhookEvent, error)
}

// ObjectStore abstracts the remote bucket the service uploads images to.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Service provides the core business logic for sticker sends.
type Service struct {
	repo          store.Repository
	payments      PaymentProvider
	storage       ObjectStore
	eventProducer rabbitmq.Publisher
	eventExchange string

	priceCents       int64
	testDiscountCode string
	publicBaseURL    string
}

// NewService creates a new sticker service instance. The storage client and
// event producer may be nil; the corresponding features degrade with a warning
// instead of preventing boot.
func NewService(
	repo store.Repository,
	payments PaymentProvider,
	storage ObjectStore,
	producer rabbitmq.Publisher,
	eventExchange string,
	priceCents int64,
	testDiscountCode string,
	publicBaseURL string,
) *Service {
	return &Service{
		repo:             repo,
		payments:         payments,
		storage:          storage,
		eventProducer:    producer,
		eventExchange:    eventExchange,
		priceCents:       priceCents,
		testDiscountCode: testDiscountCode,
		publicBaseURL:    publicBaseURL,
	}
}

// RegisterHandle creates a new receiver record after validating the input.
// Duplicate handles and emails surface as store.ErrDuplicateHandle and
// store.ErrDuplicateEmail respectively.
func (s *Service) RegisterHandle(ctx context.Context, handle, address, email string) (*domain.Receiver, error) {
	handle = strings.TrimSpace(handle)
	address = strings.TrimSpace(address)
	email = strings.TrimSpace(email)

	if handle == "" || address == "" || email == "" {
		return nil, ErrMissingFields
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	receiver, err := s.repo.CreateReceiver(ctx, &domain.Receiver{
		Handle:  handle,
		Address: address,
		Email:   email,
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "receiver.created", rabbitmq.ReceiverCreatedEvent{
		Handle:    receiver.Handle,
		Email:     receiver.Email,
		Timestamp: time.Now().UTC(),
	})

	return receiver, nil
}

// UploadImage validates the uploaded bytes and stores them in the remote bucket
// under a random UUID name that keeps the original file extension. Validation
// happens before any remote write; a failed remote write leaves no local state.
func (s *Service) UploadImage(ctx context.Context, data []byte, mimeType, originalFilename string) (*domain.UploadResult, error) {
	if len(data) == 0 {
		return nil, ErrNoFile
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, ErrInvalidFileType
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrFileTooLarge
	}
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}

	fileName := uuid.New().String()
	if ext := strings.TrimPrefix(filepath.Ext(originalFilename), "."); ext != "" {
		fileName = fmt.Sprintf("%s.%s", fileName, ext)
	}

	imageURL, err := s.storage.Put(ctx, fileName, mimeType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	return &domain.UploadResult{
		ImageURL: imageURL,
		FileName: fileName,
		Size:     int64(len(data)),
		MimeType: mimeType,
	}, nil
}

// CreateSend records a provisional, unpurchased send after confirming the
// receiver exists. No row is written when the handle is unknown.
func (s *Service) CreateSend(ctx context.Context, handle, imageURL string) (*domain.Send, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" || strings.TrimSpace(imageURL) == "" {
		return nil, ErrMissingFields
	}

	if _, err := s.repo.FindReceiverByHandle(ctx, handle); err != nil {
		return nil, err
	}

	return s.repo.CreateSend(ctx, imageURL, handle)
}

// CreateCheckoutSession creates a hosted payment session for one sticker send.
// A configured test discount code drops the price to zero; otherwise the
// configured fixed price applies. Nothing is persisted locally here; the
// session metadata carries everything the confirmation path needs.
func (s *Service) CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (*stripeclient.CheckoutSession, error) {
	if req.ImageURL == "" || req.Username == "" || req.Handle == "" {
		return nil, ErrMissingFields
	}

	isTest := s.testDiscountCode != "" && req.DiscountCode == s.testDiscountCode
	price := s.priceCents
	if isTest {
		price = 0
	}

	session, err := s.payments.CreateCheckoutSession(ctx, stripeclient.CheckoutParams{
		ImageURL:   req.ImageURL,
		Username:   req.Username,
		Handle:     req.Handle,
		UnitAmount: price,
		IsTest:     isTest,
		SuccessURL: s.publicBaseURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.publicBaseURL + "/?canceled=true",
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=app op=create_checkout_session session_id=%s handle=%s test=%t price_cents=%d", session.ID, req.Handle, isTest, price)
	return session, nil
}

// publishEvent publishes to the configured exchange, logging on failure. Event
// delivery is best-effort: the durable database write has already happened and
// the request must still succeed.
func (s *Service) publishEvent(ctx context.Context, routingKey string, body interface{}) {
	if s.eventProducer == nil {
		return
	}
	if err := s.eventProducer.Publish(ctx, s.eventExchange, routingKey, body); err != nil {
		log.Printf("level=error component=app msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}
