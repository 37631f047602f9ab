// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/registrar/internal/middleware"
)

// Router assembles the HTTP routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	websocket     http.Handler
}

// NewRouter creates a Router. ws may be nil, in which case the WebSocket
// route is not registered.
func NewRouter(handler *Handler, mw *ChiMiddleware, ws http.Handler) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw, websocket: ws}
}

// Setup returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
	})

	r.Route("/api/v1/imports", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)

		if router.websocket != nil {
			r.Get("/ws", router.websocket.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(APISecurityHeaders())

			r.With(router.chiMiddleware.RateLimitCustom(RateLimitUpload)).Post("/", router.handler.StartImport)
			r.Get("/", router.handler.ListImports)
			r.Get("/current", router.handler.CurrentImport)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", router.handler.GetImport)
				r.Delete("/", router.handler.DeleteImport)
				r.Post("/pause", router.handler.PauseImport)
				r.Post("/resume", router.handler.ResumeImport)
				r.Post("/cancel", router.handler.CancelImport)
				r.Post("/stop", router.handler.StopImport)
				r.Post("/continue", router.handler.ContinueImport)
			})
		})
	})

	return r
}
