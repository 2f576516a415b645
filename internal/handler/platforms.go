package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/crosspostme/crosspost-agent/internal/catalog"
	"github.com/crosspostme/crosspost-agent/internal/connection"
	"github.com/crosspostme/crosspost-agent/internal/domain"
	"github.com/crosspostme/crosspost-agent/internal/logger"
	"github.com/crosspostme/crosspost-agent/internal/store"
)

// PlatformHandlers contains handlers for the platform connection API
type PlatformHandlers struct {
	catalog catalog.Service
	store   store.Store
	conn    connection.Service
}

// NewPlatformHandlers creates new platform handlers
func NewPlatformHandlers(cat catalog.Service, st store.Store, conn connection.Service) *PlatformHandlers {
	return &PlatformHandlers{catalog: cat, store: st, conn: conn}
}

// SubmitCredentialsRequest is the request body for submitting credential values.
// Values merge with previously entered ones for the same attempt.
type SubmitCredentialsRequest struct {
	Credentials map[string]string `json:"credentials" validate:"required"`
}

// ConnectedResponse wraps the connected-platform snapshot
type ConnectedResponse struct {
	Connected []domain.ConnectedPlatform `json:"connected"`
	Total     int                        `json:"total"`
}

// AttemptsResponse wraps the active attempt list
type AttemptsResponse struct {
	Attempts []domain.ConnectionAttempt `json:"attempts"`
	Total    int                        `json:"total"`
}

// HandleListPlatforms handles GET /api/v1/platforms
// @Summary List supported platforms
// @Description Returns the platform catalog. Pass refresh=true to refetch from the backend; a failed refetch falls back to the cached copy marked stale.
// @Tags platforms
// @Produce json
// @Success 200 {object} catalog.Catalog
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/platforms [get]
func (h *PlatformHandlers) HandleListPlatforms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refresh, _ := strconv.ParseBool(GetOptionalQueryParam(r, "refresh", "false"))

		var (
			cat *catalog.Catalog
			err error
		)
		if refresh {
			cat, err = h.catalog.Reload(r.Context())
		} else {
			cat, err = h.catalog.Load(r.Context())
		}
		if err != nil {
			respondServiceError(w, r, "List platforms", err)
			return
		}

		respondJSON(w, http.StatusOK, cat)
	}
}

// HandleConnectedPlatforms handles GET /api/v1/platforms/connected
// @Summary List connected platforms
// @Description Returns the locally tracked connection records. Pass refresh=true to reconcile with the backend first.
// @Tags platforms
// @Produce json
// @Success 200 {object} ConnectedResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/platforms/connected [get]
func (h *PlatformHandlers) HandleConnectedPlatforms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refresh, _ := strconv.ParseBool(GetOptionalQueryParam(r, "refresh", "false"))

		if refresh {
			if err := h.store.Refresh(r.Context()); err != nil {
				respondServiceError(w, r, "Refresh connected platforms", err)
				return
			}
		}

		snapshot := h.store.Snapshot()
		respondJSON(w, http.StatusOK, ConnectedResponse{
			Connected: snapshot,
			Total:     len(snapshot),
		})
	}
}

// HandleConnect handles POST /api/v1/platforms/{platform}/connect
// @Summary Start a connection attempt
// @Description Starts a connect flow for the platform. The response snapshot tells the caller whether to open the auth URL or collect credential fields.
// @Tags platforms
// @Produce json
// @Param platform path string true "Platform ID"
// @Success 201 {object} domain.ConnectionAttempt
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/platforms/{platform}/connect [post]
func (h *PlatformHandlers) HandleConnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		platformID, ok := GetPlatformParam(r, w)
		if !ok {
			return
		}

		attempt, err := h.conn.Connect(r.Context(), platformID)
		if err != nil {
			respondServiceError(w, r, "Connect platform", err)
			return
		}

		log.Info("Connection attempt created", "platform", platformID, "attempt_id", attempt.ID)
		respondJSON(w, http.StatusCreated, attempt)
	}
}

// HandleDisconnect handles DELETE /api/v1/platforms/{platform}
// @Summary Disconnect a platform
// @Description Removes the platform connection. The local record is dropped only after the backend confirms.
// @Tags platforms
// @Produce json
// @Param platform path string true "Platform ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/platforms/{platform} [delete]
func (h *PlatformHandlers) HandleDisconnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		platformID, ok := GetPlatformParam(r, w)
		if !ok {
			return
		}

		if err := h.conn.Disconnect(r.Context(), platformID); err != nil {
			respondServiceError(w, r, "Disconnect platform", err)
			return
		}

		respondJSON(w, http.StatusOK, SuccessResponse{Message: MsgDisconnectedSuccess})
	}
}

// HandleListAttempts handles GET /api/v1/attempts
func (h *PlatformHandlers) HandleListAttempts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attempts := h.conn.Attempts()
		respondJSON(w, http.StatusOK, AttemptsResponse{
			Attempts: attempts,
			Total:    len(attempts),
		})
	}
}

// HandleGetAttempt handles GET /api/v1/attempts/{attemptID}. Recently finished
// attempts stay queryable for a short window after leaving active tracking.
func (h *PlatformHandlers) HandleGetAttempt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")

		attempt, err := h.conn.Attempt(attemptID)
		if err != nil {
			respondServiceError(w, r, "Get attempt", err)
			return
		}

		respondJSON(w, http.StatusOK, attempt)
	}
}

// HandleSubmitCredentials handles POST /api/v1/attempts/{attemptID}/credentials
// @Summary Submit credential values
// @Description Merges the entered values into the attempt and submits once all required fields are present. A recoverable rejection returns the attempt to the entry state with last_error set.
// @Tags attempts
// @Accept json
// @Produce json
// @Param attemptID path string true "Attempt ID"
// @Success 200 {object} domain.ConnectionAttempt
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/attempts/{attemptID}/credentials [post]
func (h *PlatformHandlers) HandleSubmitCredentials() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")

		var req SubmitCredentialsRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Submit credentials"); err != nil {
			return
		}

		attempt, err := h.conn.SubmitCredentials(r.Context(), attemptID, req.Credentials)
		if err != nil {
			// The snapshot still moved (for example back to the entry phase
			// after a recoverable rejection), so the mapped error response is
			// what tells the caller why.
			respondServiceError(w, r, "Submit credentials", err)
			return
		}

		respondJSON(w, http.StatusOK, attempt)
	}
}

// HandleConfirmAttempt handles POST /api/v1/attempts/{attemptID}/confirm.
// Used by the OAuth flow to verify completion against the backend. Safe to
// call repeatedly.
func (h *PlatformHandlers) HandleConfirmAttempt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")

		attempt, err := h.conn.ConfirmOAuthCompletion(r.Context(), attemptID)
		if err != nil {
			respondServiceError(w, r, "Confirm attempt", err)
			return
		}

		respondJSON(w, http.StatusOK, attempt)
	}
}

// HandleCancelAttempt handles POST /api/v1/attempts/{attemptID}/cancel
func (h *PlatformHandlers) HandleCancelAttempt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		attemptID := chi.URLParam(r, "attemptID")

		attempt, err := h.conn.Cancel(r.Context(), attemptID)
		if err != nil {
			respondServiceError(w, r, "Cancel attempt", err)
			return
		}

		log.Info("Attempt cancelled via API", "attempt_id", attemptID)
		respondJSON(w, http.StatusOK, attempt)
	}
}
