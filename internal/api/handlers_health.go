// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package api

import (
	"net/http"
)

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status            string  `json:"status"` // "healthy" or "degraded"
	Uptime            float64 `json:"uptime"` // seconds
	DriverState       string  `json:"driverState"`
	SessionID         string  `json:"sessionId,omitempty"`
	DatabaseEnabled   bool    `json:"databaseEnabled"`
	DatabaseConnected bool    `json:"databaseConnected"`
	IngestionBreaker  string  `json:"ingestionBreaker,omitempty"`
	WebSocketClients  int     `json:"websocketClients"`
}

// Health handles GET /api/v1/health. An open ingestion breaker or an
// unreachable database marks the service degraded; it still answers 200.
//
// @Summary Service health
// @Tags health
// @Produce json
// @Success 200 {object} models.APIResponse{data=HealthStatus}
// @Router /api/v1/health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	hs := HealthStatus{
		Status: "healthy",
		Uptime: h.now().Sub(h.startTime).Seconds(),
	}

	s, state := h.driver.Snapshot()
	hs.DriverState = string(state)
	if s != nil {
		hs.SessionID = s.ID
	}

	if h.database != nil {
		hs.DatabaseEnabled = true
		hs.DatabaseConnected = h.database.Ping(r.Context()) == nil
		if !hs.DatabaseConnected {
			hs.Status = "degraded"
		}
	}
	if h.ingestion != nil {
		hs.IngestionBreaker = h.ingestion.BreakerState()
		if hs.IngestionBreaker == "open" {
			hs.Status = "degraded"
		}
	}
	if h.clients != nil {
		hs.WebSocketClients = h.clients.GetClientCount()
	}

	respondSuccess(w, r, http.StatusOK, hs)
}
