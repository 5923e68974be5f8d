package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/SerenityUX/sendmestickers/internal/app"
	"github.com/SerenityUX/sendmestickers/internal/domain"
	"github.com/SerenityUX/sendmestickers/internal/store"
	"github.com/SerenityUX/sendmestickers/pkg/stripeclient"
)

// memoryRepo is an in-memory store.Repository for endpoint tests.
type memoryRepo struct {
	store.Repository

	receivers      map[string]*domain.Receiver
	sendsBySession map[string]*domain.Send
	provisional    []*domain.Send
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		receivers:      map[string]*domain.Receiver{},
		sendsBySession: map[string]*domain.Send{},
	}
}

func (r *memoryRepo) CreateReceiver(ctx context.Context, receiver *domain.Receiver) (*domain.Receiver, error) {
	if _, ok := r.receivers[receiver.Handle]; ok {
		return nil, store.ErrDuplicateHandle
	}
	for _, existing := range r.receivers {
		if existing.Email == receiver.Email {
			return nil, store.ErrDuplicateEmail
		}
	}
	created := *receiver
	r.receivers[receiver.Handle] = &created
	return &created, nil
}

func (r *memoryRepo) FindReceiverByHandle(ctx context.Context, handle string) (*domain.Receiver, error) {
	receiver, ok := r.receivers[handle]
	if !ok {
		return nil, store.ErrReceiverNotFound
	}
	return receiver, nil
}

func (r *memoryRepo) CreateSend(ctx context.Context, imageURL, receiverHandle string) (*domain.Send, error) {
	send := &domain.Send{ID: uuid.New(), ImageURL: imageURL, ReceiverHandle: receiverHandle}
	r.provisional = append(r.provisional, send)
	return send, nil
}

func (r *memoryRepo) FindSendBySessionID(ctx context.Context, sessionID string) (*domain.Send, error) {
	send, ok := r.sendsBySession[sessionID]
	if !ok {
		return nil, store.ErrSendNotFound
	}
	return send, nil
}

func (r *memoryRepo) FinalizeSend(ctx context.Context, imageURL, receiverHandle, sessionID string) (*domain.Send, bool, error) {
	if existing, ok := r.sendsBySession[sessionID]; ok {
		return existing, false, nil
	}
	id := sessionID
	send := &domain.Send{
		ID:              uuid.New(),
		ImageURL:        imageURL,
		ReceiverHandle:  receiverHandle,
		StripeSessionID: &id,
		Purchased:       true,
	}
	r.sendsBySession[sessionID] = send
	return send, true, nil
}

type paymentsStub struct {
	session     *stripeclient.SessionDetails
	retrieveErr error
}

func (p *paymentsStub) CreateCheckoutSession(ctx context.Context, params stripeclient.CheckoutParams) (*stripeclient.CheckoutSession, error) {
	return &stripeclient.CheckoutSession{ID: "cs_test_abc", URL: "https://checkout.stripe.com/pay/cs_test_abc"}, nil
}

func (p *paymentsStub) RetrieveSession(ctx context.Context, sessionID string) (*stripeclient.SessionDetails, error) {
	if p.retrieveErr != nil {
		return nil, p.retrieveErr
	}
	return p.session, nil
}

func (p *paymentsStub) ConstructWebhookEvent(payload []byte, sigHeader string) (*stripeclient.WebhookEvent, error) {
	return nil, errors.New("no valid signature")
}

type storageStub struct{ puts int }

func (s *storageStub) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	s.puts++
	return "https://stickers.example.com/" + key, nil
}

func newTestServer(repo *memoryRepo, payments *paymentsStub, storage app.ObjectStore) http.Handler {
	service := app.NewService(repo, payments, storage, nil, "stickers.events", 1500, "FREESTICKERS", "http://localhost:3000")
	return Routes(NewStickerHandlers(service))
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestCreateHandle_RegistrationAndConflict(t *testing.T) {
	handler := newTestServer(newMemoryRepo(), &paymentsStub{}, nil)

	rec := postJSON(t, handler, "/api/createHandle", domain.CreateHandleRequest{
		Handle:  "alice",
		Address: "1 Main St",
		Email:   "a@b.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, handler, "/api/createHandle", domain.CreateHandleRequest{
		Handle:  "alice",
		Address: "2 Side St",
		Email:   "other@b.com",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate handle, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "Handle already exists" {
		t.Fatalf("unexpected error message %q", body["error"])
	}

	rec = postJSON(t, handler, "/api/createHandle", domain.CreateHandleRequest{
		Handle:  "bob",
		Address: "3 Back St",
		Email:   "a@b.com",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}
}

func TestCreateHandle_InvalidInput(t *testing.T) {
	handler := newTestServer(newMemoryRepo(), &paymentsStub{}, nil)

	rec := postJSON(t, handler, "/api/createHandle", domain.CreateHandleRequest{
		Handle: "alice",
		Email:  "a@b.com",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing address, got %d", rec.Code)
	}

	rec = postJSON(t, handler, "/api/createHandle", domain.CreateHandleRequest{
		Handle:  "alice",
		Address: "1 Main St",
		Email:   "not-an-email",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad email, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "Invalid email format" {
		t.Fatalf("unexpected error message %q", body["error"])
	}
}

func TestSendSticker_UnknownReceiver(t *testing.T) {
	handler := newTestServer(newMemoryRepo(), &paymentsStub{}, nil)

	rec := postJSON(t, handler, "/api/sendSticker", domain.SendStickerRequest{
		Handle:   "bob",
		ImageURL: "https://x/y.png",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unregistered handle, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "Receiver not found" {
		t.Fatalf("unexpected error message %q", body["error"])
	}
}

func TestCompleteSend_IdempotentReplay(t *testing.T) {
	repo := newMemoryRepo()
	repo.receivers["alice"] = &domain.Receiver{Handle: "alice", Address: "1 Main St", Email: "a@b.com"}
	handler := newTestServer(repo, &paymentsStub{}, nil)

	req := domain.CompleteSendRequest{Handle: "alice", ImageURL: "https://x/y.png", SessionID: "sess_1"}

	rec := postJSON(t, handler, "/api/complete-send", req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first completion, got %d: %s", rec.Code, rec.Body.String())
	}
	first := decodeBody(t, rec)
	if first["alreadyProcessed"] != nil {
		t.Fatal("first completion must not be flagged alreadyProcessed")
	}
	data, ok := first["data"].(map[string]interface{})
	if !ok || data["purchased"] != true {
		t.Fatalf("expected purchased row in response, got %v", first["data"])
	}

	rec = postJSON(t, handler, "/api/complete-send", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", rec.Code)
	}
	second := decodeBody(t, rec)
	if second["alreadyProcessed"] != true {
		t.Fatalf("expected alreadyProcessed on replay, got %v", second)
	}
	if len(repo.sendsBySession) != 1 {
		t.Fatalf("expected exactly one finalized row, got %d", len(repo.sendsBySession))
	}
}

func TestCompleteSend_Validation(t *testing.T) {
	handler := newTestServer(newMemoryRepo(), &paymentsStub{}, nil)

	rec := postJSON(t, handler, "/api/complete-send", domain.CompleteSendRequest{
		Handle:   "alice",
		ImageURL: "https://x/y.png",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing sessionId, got %d", rec.Code)
	}

	rec = postJSON(t, handler, "/api/complete-send", domain.CompleteSendRequest{
		Handle:    "ghost",
		ImageURL:  "https://x/y.png",
		SessionID: "sess_2",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown receiver, got %d", rec.Code)
	}
}

func TestVerifySession(t *testing.T) {
	payments := &paymentsStub{session: &stripeclient.SessionDetails{
		ID:            "sess_3",
		PaymentStatus: "paid",
		AmountTotal:   1500,
		Currency:      "usd",
		Metadata:      map[string]string{"handle": "alice"},
	}}
	handler := newTestServer(newMemoryRepo(), payments, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/verify-session", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without session_id, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/verify-session?session_id=sess_3", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for paid session, got %d", rec.Code)
	}
	var details stripeclient.SessionDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &details); err != nil {
		t.Fatalf("failed to decode session details: %v", err)
	}
	if details.Metadata["handle"] != "alice" {
		t.Fatalf("expected metadata to round-trip, got %+v", details.Metadata)
	}

	payments.session.PaymentStatus = "unpaid"
	req = httptest.NewRequest(http.MethodGet, "/api/verify-session?session_id=sess_3", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unpaid session, got %d", rec.Code)
	}
}

func TestCreateCheckoutSession_Endpoint(t *testing.T) {
	handler := newTestServer(newMemoryRepo(), &paymentsStub{}, nil)

	rec := postJSON(t, handler, "/api/create-checkout-session", domain.CheckoutSessionRequest{
		ImageURL: "https://x/y.png",
		Username: "alice",
		Handle:   "alice",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["sessionId"] == "" || body["url"] == "" {
		t.Fatalf("expected sessionId and url, got %v", body)
	}

	rec = postJSON(t, handler, "/api/create-checkout-session", domain.CheckoutSessionRequest{Username: "alice"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", rec.Code)
	}
}

func multipartUpload(t *testing.T, fieldName, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+fieldName+`"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create multipart part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write multipart data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestUploadImage_Endpoint(t *testing.T) {
	storage := &storageStub{}
	handler := newTestServer(newMemoryRepo(), &paymentsStub{}, storage)

	body, contentType := multipartUpload(t, "image", "sticker.png", "image/png", []byte{0x89, 0x50, 0x4E, 0x47})
	req := httptest.NewRequest(http.MethodPost, "/api/uploadImage", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	imageURL, _ := resp["imageUrl"].(string)
	if !strings.HasPrefix(imageURL, "https://stickers.example.com/") {
		t.Fatalf("unexpected imageUrl %q", imageURL)
	}
	if resp["mimeType"] != "image/png" {
		t.Fatalf("expected mime type to round-trip, got %v", resp["mimeType"])
	}

	body, contentType = multipartUpload(t, "image", "notes.txt", "text/plain", []byte("hello"))
	req = httptest.NewRequest(http.MethodPost, "/api/uploadImage", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-image upload, got %d", rec.Code)
	}
	if respBody := decodeBody(t, rec); respBody["error"] != "Only image files are allowed" {
		t.Fatalf("unexpected error message %q", respBody["error"])
	}
	if storage.puts != 1 {
		t.Fatalf("expected one stored object, got %d", storage.puts)
	}

	body, contentType = multipartUpload(t, "wrongfield", "sticker.png", "image/png", []byte{0x89})
	req = httptest.NewRequest(http.MethodPost, "/api/uploadImage", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when the image field is missing, got %d", rec.Code)
	}
}

func TestWebhook_BadSignature(t *testing.T) {
	handler := newTestServer(newMemoryRepo(), &paymentsStub{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(`{"type":"checkout.session.completed"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	handler := newTestServer(newMemoryRepo(), &paymentsStub{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health check, got %d", rec.Code)
	}
}
