// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	registryimport "github.com/tomtom215/registrar/internal/import"
	"github.com/tomtom215/registrar/internal/logging"
)

// multipartMemory is held in memory per upload; larger parts spill to disk.
const multipartMemory = 8 << 20

// StartImportRequest is the validated form of POST /api/v1/imports.
type StartImportRequest struct {
	Year  int      `validate:"required,import_year"`
	Files []string `validate:"min=1,max=50,dive,registry_file"`
}

// ImportView is a session with its derived progress.
type ImportView struct {
	Session     *registryimport.Session    `json:"session"`
	DriverState registryimport.DriverState `json:"driverState,omitempty"`
	Progress    registryimport.Progress    `json:"progress"`
}

func (h *Handler) view(s *registryimport.Session, state registryimport.DriverState) ImportView {
	v := ImportView{Session: s, DriverState: state}
	if h.progress != nil {
		if p, ok := h.progress.Latest(); ok && p.SessionID == s.ID && p.Status == s.Status {
			v.Progress = p
			return v
		}
	}
	v.Progress = registryimport.ComputeProgress(s, h.now())
	v.Progress.DriverState = state
	return v
}

// driverSession returns the driver's session when it is id.
func (h *Handler) driverSession(id string) (*registryimport.Session, registryimport.DriverState) {
	s, state := h.driver.Snapshot()
	if s == nil || s.ID != id {
		return nil, ""
	}
	return s, state
}

func owned(state registryimport.DriverState) bool {
	return state == registryimport.StateProcessing || state == registryimport.StatePaused
}

// sessionID reads and validates the {id} URL parameter.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid session id", nil)
		return "", false
	}
	return id, true
}

// respondDriverError maps driver and store errors to HTTP statuses.
func respondDriverError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registryimport.ErrImportRunning), errors.Is(err, registryimport.ErrSessionBusy):
		respondError(w, http.StatusConflict, ErrCodeConflict, "An import is already running", nil)
	case errors.Is(err, registryimport.ErrNotRunning):
		respondError(w, http.StatusConflict, ErrCodeConflict, "The import is not running", nil)
	case errors.Is(err, registryimport.ErrNotPaused):
		respondError(w, http.StatusConflict, ErrCodeConflict, "The import is not paused", nil)
	case errors.Is(err, registryimport.ErrNotResumable):
		respondError(w, http.StatusConflict, ErrCodeConflict, err.Error(), nil)
	case errors.Is(err, registryimport.ErrFilesMissing):
		respondError(w, http.StatusConflict, ErrCodeConflict, err.Error(), nil)
	case errors.Is(err, registryimport.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Import session not found", nil)
	case errors.Is(err, registryimport.ErrSessionStale):
		respondError(w, http.StatusGone, ErrCodeGone, "Import session is too old to resume", nil)
	default:
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Import request failed", err)
	}
}

// StartImport handles POST /api/v1/imports.
//
// @Summary Start a registry import
// @Description Uploads registry files (CSV or XLSX) for one year and starts importing them in the background
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param year formData int true "Registry year"
// @Param files formData file true "Registry files, in import order"
// @Success 202 {object} models.APIResponse{data=ImportView}
// @Failure 400 {object} models.APIResponse "Invalid request"
// @Failure 409 {object} models.APIResponse "Import already in progress"
// @Failure 413 {object} models.APIResponse "Upload too large"
// @Router /api/v1/imports [post]
func (h *Handler) StartImport(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
				"Upload exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes", nil)
			return
		}
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "Expected a multipart form with year and files", nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	year, _ := strconv.Atoi(r.FormValue("year"))
	uploads := r.MultipartForm.File["files"]
	req := StartImportRequest{Year: year, Files: make([]string, len(uploads))}
	for i, fh := range uploads {
		req.Files[i] = uploadName(fh.Filename)
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	if dup := firstDuplicate(req.Files); dup != "" {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "Duplicate file name: "+dup, nil)
		return
	}

	if s, state := h.driver.Snapshot(); s != nil && owned(state) {
		respondError(w, http.StatusConflict, ErrCodeConflict, "An import is already running", nil)
		return
	}

	id := uuid.NewString()
	paths, err := h.keepUploads(id, uploads)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to store uploaded files", err)
		return
	}

	s, err := h.driver.StartSession(r.Context(), id, req.Year, paths)
	if err != nil {
		h.discardUploads(r.Context(), id)
		respondDriverError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("session_id", id).
		Int("year", req.Year).
		Int("files", len(paths)).
		Msg("Import started via API")
	respondSuccess(w, r, http.StatusAccepted, h.view(s, registryimport.StateProcessing))
}

func (h *Handler) keepUploads(id string, uploads []*multipart.FileHeader) ([]string, error) {
	paths, err := saveUploads(h.sessionDir(id), uploads)
	if err != nil {
		h.discardUploads(context.Background(), id)
	}
	return paths, err
}

func (h *Handler) discardUploads(ctx context.Context, id string) {
	if err := os.RemoveAll(h.sessionDir(id)); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("session_id", id).Msg("Failed to remove uploaded files")
	}
}

func firstDuplicate(names []string) string {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return n
		}
		seen[n] = struct{}{}
	}
	return ""
}

// ListImports handles GET /api/v1/imports?limit=N.
//
// @Summary List recent imports
// @Tags imports
// @Produce json
// @Param limit query int false "Maximum sessions (1-100)" default(20)
// @Success 200 {object} models.APIResponse{data=[]registryimport.Session}
// @Failure 503 {object} models.APIResponse "History database disabled"
// @Router /api/v1/imports [get]
func (h *Handler) ListImports(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Session history is not enabled", nil)
		return
	}
	limit := min(max(getIntParam(r, "limit", 20), 1), 100)

	sessions, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to list import sessions", err)
		return
	}
	views := make([]ImportView, len(sessions))
	for i, s := range sessions {
		var state registryimport.DriverState
		if live, st := h.driverSession(s.ID); live != nil {
			s, state = live, st
		}
		views[i] = h.view(s, state)
	}
	respondSuccess(w, r, http.StatusOK, views)
}

// CurrentImport handles GET /api/v1/imports/current: the driver's session,
// or else the saved session a restart would continue.
//
// @Summary Get the current import
// @Tags imports
// @Produce json
// @Success 200 {object} models.APIResponse{data=ImportView}
// @Failure 404 {object} models.APIResponse "No current import"
// @Router /api/v1/imports/current [get]
func (h *Handler) CurrentImport(w http.ResponseWriter, r *http.Request) {
	if s, state := h.driver.Snapshot(); s != nil {
		respondSuccess(w, r, http.StatusOK, h.view(s, state))
		return
	}
	s, err := h.sessions.Current(r.Context())
	if err != nil && !errors.Is(err, registryimport.ErrSessionStale) {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to load import session", err)
		return
	}
	if s == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "No import session", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, h.view(s, registryimport.StateIdle))
}

// GetImport handles GET /api/v1/imports/{id}.
//
// @Summary Get an import
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.APIResponse{data=ImportView}
// @Failure 400 {object} models.APIResponse "Invalid session ID"
// @Failure 404 {object} models.APIResponse "Unknown session"
// @Router /api/v1/imports/{id} [get]
func (h *Handler) GetImport(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if s, state := h.driverSession(id); s != nil {
		respondSuccess(w, r, http.StatusOK, h.view(s, state))
		return
	}

	s, err := h.sessions.Load(r.Context(), id)
	if errors.Is(err, registryimport.ErrSessionStale) && h.history != nil {
		s, err = h.history.Get(r.Context(), id)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to load import session", err)
		return
	}
	if s == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Import session not found", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, h.view(s, ""))
}

// control runs a driver action against the driver's session id.
func (h *Handler) control(action string, fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		if s, _ := h.driverSession(id); s == nil {
			respondError(w, http.StatusNotFound, ErrCodeNotFound, "No running import with this id", nil)
			return
		}
		if err := fn(); err != nil {
			respondDriverError(w, err)
			return
		}
		logging.Ctx(r.Context()).Info().Str("session_id", id).Str("action", action).Msg("Import control request")

		s, state := h.driverSession(id)
		respondSuccess(w, r, http.StatusOK, h.view(s, state))
	}
}

// PauseImport handles POST /api/v1/imports/{id}/pause.
//
// @Summary Pause an import
// @Description The batch in flight completes; no further batch is submitted until resumed
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.APIResponse{data=ImportView}
// @Failure 409 {object} models.APIResponse "Import not running"
// @Router /api/v1/imports/{id}/pause [post]
func (h *Handler) PauseImport(w http.ResponseWriter, r *http.Request) {
	h.control("pause", h.driver.Pause)(w, r)
}

// ResumeImport handles POST /api/v1/imports/{id}/resume.
//
// @Summary Resume a paused import
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.APIResponse{data=ImportView}
// @Failure 409 {object} models.APIResponse "Import not paused"
// @Router /api/v1/imports/{id}/resume [post]
func (h *Handler) ResumeImport(w http.ResponseWriter, r *http.Request) {
	h.control("resume", h.driver.Resume)(w, r)
}

// CancelImport handles POST /api/v1/imports/{id}/cancel.
//
// @Summary Cancel an import
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.APIResponse{data=ImportView}
// @Failure 409 {object} models.APIResponse "Import not running"
// @Router /api/v1/imports/{id}/cancel [post]
func (h *Handler) CancelImport(w http.ResponseWriter, r *http.Request) {
	h.control("cancel", h.driver.Cancel)(w, r)
}

// StopImport handles POST /api/v1/imports/{id}/stop.
//
// @Summary Stop an import, keeping it resumable
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.APIResponse{data=ImportView}
// @Failure 409 {object} models.APIResponse "Import not running"
// @Router /api/v1/imports/{id}/stop [post]
func (h *Handler) StopImport(w http.ResponseWriter, r *http.Request) {
	h.control("stop", h.driver.Stop)(w, r)
}

// ContinueImport handles POST /api/v1/imports/{id}/continue: a saved
// session is resumed from the files stored at upload time.
//
// @Summary Continue a saved import
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 202 {object} models.APIResponse{data=ImportView}
// @Failure 404 {object} models.APIResponse "Unknown session"
// @Failure 409 {object} models.APIResponse "Not resumable or files missing"
// @Failure 410 {object} models.APIResponse "Session is stale"
// @Router /api/v1/imports/{id}/continue [post]
func (h *Handler) ContinueImport(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	saved, err := h.sessions.Load(r.Context(), id)
	if err != nil {
		respondDriverError(w, err)
		return
	}
	if saved == nil {
		respondDriverError(w, registryimport.ErrSessionNotFound)
		return
	}
	paths, err := registryimport.StoredPaths(h.uploadDir, saved)
	if err != nil {
		respondDriverError(w, err)
		return
	}

	s, err := h.driver.ResumeSession(r.Context(), id, paths)
	if err != nil {
		respondDriverError(w, err)
		return
	}
	respondSuccess(w, r, http.StatusAccepted, h.view(s, registryimport.StateProcessing))
}

// DeleteImport handles DELETE /api/v1/imports/{id}. The session is removed
// from the local store and the mirror and its files are deleted.
//
// @Summary Forget a finished import
// @Tags imports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse "Import still running"
// @Router /api/v1/imports/{id} [delete]
func (h *Handler) DeleteImport(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if _, state := h.driverSession(id); owned(state) {
		respondError(w, http.StatusConflict, ErrCodeConflict, "Cancel the import before deleting it", nil)
		return
	}

	ctx := r.Context()
	if err := h.sessions.Clear(ctx, id); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to delete import session", err)
		return
	}
	if h.history != nil {
		if err := h.history.Delete(ctx, id); err != nil {
			respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to delete import session", err)
			return
		}
	}
	h.discardUploads(ctx, id)

	logging.Ctx(ctx).Info().Str("session_id", id).Msg("Import session deleted")
	respondSuccess(w, r, http.StatusOK, map[string]string{"deleted": id})
}
