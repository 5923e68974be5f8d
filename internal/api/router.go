/**
 * @description
 * This file sets up the HTTP router for the sendmestickers service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies the
 * standard middleware stack, including CORS for the browser client.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for the cross-origin web frontend.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes creates and returns the router for the sticker service API.
func Routes(h *StickerHandlers) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// The forms are served from a separate origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/createHandle", h.CreateHandleHandler)
		r.Post("/uploadImage", h.UploadImageHandler)
		r.Post("/sendSticker", h.SendStickerHandler)
		r.Post("/create-checkout-session", h.CreateCheckoutSessionHandler)
		r.Get("/verify-session", h.VerifySessionHandler)
		r.Post("/complete-send", h.CompleteSendHandler)
		r.Post("/webhook", h.WebhookHandler)
	})

	return r
}
