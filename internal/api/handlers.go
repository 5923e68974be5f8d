/**
 * @description
 * This file contains the HTTP handlers for the sendmestickers API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/SerenityUX/sendmestickers/internal/app"
	"github.com/SerenityUX/sendmestickers/internal/domain"
	"github.com/SerenityUX/sendmestickers/internal/store"
)

// Give multipart encoding some headroom beyond the image size cap so a payload
// at exactly the cap still parses.
const uploadBodyLimit = app.MaxUploadBytes + 1024*1024

// StickerHandlers holds the application service that handlers will use.
type StickerHandlers struct {
	service *app.Service
}

// NewStickerHandlers creates a new instance of StickerHandlers.
func NewStickerHandlers(service *app.Service) *StickerHandlers {
	return &StickerHandlers{service: service}
}

func (h *StickerHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

// writeError emits the uniform failure shape: a JSON object with an `error`
// field the browser client uses to surface the message and reset its form state.
func (h *StickerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// CreateHandleHandler registers a new receiver (handle, mailing address, email).
func (h *StickerHandlers) CreateHandleHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateHandleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receiver, err := h.service.RegisterHandle(r.Context(), req.Handle, req.Address, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingFields):
			h.writeError(w, http.StatusBadRequest, "Missing required fields")
		case errors.Is(err, app.ErrInvalidEmail):
			h.writeError(w, http.StatusBadRequest, "Invalid email format")
		case errors.Is(err, store.ErrDuplicateHandle):
			h.writeError(w, http.StatusConflict, "Handle already exists")
		case errors.Is(err, store.ErrDuplicateEmail):
			h.writeError(w, http.StatusConflict, "Email already exists")
		default:
			log.Printf("level=error component=api endpoint=create_handle err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Failed to create handle")
		}
		return
	}

	log.Printf("level=info component=api endpoint=create_handle outcome=created handle=%s", receiver.Handle)
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    receiver,
	})
}

// UploadImageHandler accepts a multipart image upload (form field `image`),
// validates it, and stores it in the remote bucket.
func (h *StickerHandlers) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, uploadBodyLimit)

	if err := r.ParseMultipartForm(uploadBodyLimit); err != nil {
		// An oversized body trips MaxBytesReader during parsing.
		h.writeError(w, http.StatusBadRequest, "File too large")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("level=error component=api endpoint=upload_image msg=\"read failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	result, err := h.service.UploadImage(r.Context(), data, mimeType, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNoFile):
			h.writeError(w, http.StatusBadRequest, "No image file provided")
		case errors.Is(err, app.ErrInvalidFileType):
			h.writeError(w, http.StatusBadRequest, "Only image files are allowed")
		case errors.Is(err, app.ErrFileTooLarge):
			h.writeError(w, http.StatusBadRequest, "File too large")
		default:
			log.Printf("level=error component=api endpoint=upload_image err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Failed to upload image")
		}
		return
	}

	log.Printf("level=info component=api endpoint=upload_image outcome=stored file=%s size=%d", result.FileName, result.Size)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"imageUrl": result.ImageURL,
		"fileName": result.FileName,
		"size":     result.Size,
		"mimeType": result.MimeType,
	})
}

// SendStickerHandler records a provisional send for an existing receiver.
func (h *StickerHandlers) SendStickerHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.SendStickerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	send, err := h.service.CreateSend(r.Context(), req.Handle, req.ImageURL)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingFields):
			h.writeError(w, http.StatusBadRequest, "Missing required fields")
		case errors.Is(err, store.ErrReceiverNotFound):
			h.writeError(w, http.StatusNotFound, "Receiver not found")
		default:
			log.Printf("level=error component=api endpoint=send_sticker err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Failed to send sticker")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    send,
	})
}

// CreateCheckoutSessionHandler creates a hosted payment session and returns the
// redirect URL.
func (h *StickerHandlers) CreateCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.service.CreateCheckoutSession(r.Context(), req)
	if err != nil {
		if errors.Is(err, app.ErrMissingFields) {
			h.writeError(w, http.StatusBadRequest, "Missing required fields")
			return
		}
		log.Printf("level=error component=api endpoint=create_checkout_session err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to create checkout session")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"sessionId": session.ID,
		"url":       session.URL,
	})
}

// VerifySessionHandler confirms with Stripe that a checkout session was paid
// and returns its details, including the metadata attached at creation.
func (h *StickerHandlers) VerifySessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		h.writeError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	details, err := h.service.VerifySession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, app.ErrPaymentNotVerified) {
			h.writeError(w, http.StatusBadRequest, "Payment not completed")
			return
		}
		log.Printf("level=error component=api endpoint=verify_session session_id=%s err=%v", sessionID, err)
		h.writeError(w, http.StatusInternalServerError, "Failed to verify session")
		return
	}

	h.writeJSON(w, http.StatusOK, details)
}

// CompleteSendHandler durably records the purchase for a paid session. Replays
// return the existing row with alreadyProcessed=true instead of erroring.
func (h *StickerHandlers) CompleteSendHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CompleteSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Handle == "" || req.ImageURL == "" || req.SessionID == "" {
		h.writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	send, alreadyProcessed, err := h.service.FinalizeSend(r.Context(), req.Handle, req.ImageURL, req.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrReceiverNotFound) {
			h.writeError(w, http.StatusNotFound, "Receiver not found")
			return
		}
		log.Printf("level=error component=api endpoint=complete_send session_id=%s err=%v", req.SessionID, err)
		h.writeError(w, http.StatusInternalServerError, "Failed to complete send")
		return
	}

	if alreadyProcessed {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":          true,
			"alreadyProcessed": true,
			"data":             send,
		})
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    send,
	})
}
