package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/hood-bridge/internal/accessory"
	"github.com/nerrad567/hood-bridge/internal/miele"
	"github.com/nerrad567/hood-bridge/internal/platform"
)

// discoveryTimeout bounds a manually triggered pass.
const discoveryTimeout = 60 * time.Second

// AccessoryResponse is one accessory as returned by the API.
type AccessoryResponse struct {
	Identity    string    `json:"identity"`
	DisplayName string    `json:"display_name"`
	UniqueID    string    `json:"unique_id"`
	ModelNumber string    `json:"model_number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAccessoryResponse(e *accessory.Entry) AccessoryResponse {
	resp := AccessoryResponse{
		Identity:    e.Identity.String(),
		DisplayName: e.DisplayName,
		UniqueID:    e.UniqueID(),
		CreatedAt:   e.CreatedAt,
	}
	if e.Context.Device != nil {
		resp.ModelNumber = e.Context.Device.ModelNumber
	}
	return resp
}

// DiscoveryResponse reports a manually triggered pass.
type DiscoveryResponse struct {
	Records   int                  `json:"records"`
	Hoods     int                  `json:"hoods"`
	Ignored   int                  `json:"ignored"`
	Malformed int                  `json:"malformed"`
	Created   int                  `json:"created"`
	Reused    int                  `json:"reused"`
	Failed    int                  `json:"failed"`
	Duration  string               `json:"duration"`
	Decisions []accessory.Decision `json:"decisions"`
	Error     string               `json:"error,omitempty"`
}

func (s *Server) handleListAccessories(w http.ResponseWriter, _ *http.Request) {
	entries := s.platform.Accessories()
	out := make([]AccessoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAccessoryResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accessories": out,
		"count":       len(out),
	})
}

func (s *Server) handleGetAccessory(w http.ResponseWriter, r *http.Request) {
	id := accessory.Identity(chi.URLParam(r, "id"))
	if !id.Valid() {
		writeBadRequest(w, "invalid accessory identity")
		return
	}

	e, ok := s.platform.Accessory(id)
	if !ok {
		writeNotFound(w, "accessory not found")
		return
	}
	writeJSON(w, http.StatusOK, toAccessoryResponse(e))
}

// handleDiscover runs one pass. A pass that is already running yields 409;
// an unreachable or unreadable directory yields 502. Registration failures
// still return 200 with the per-hood decisions and the error text.
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), discoveryTimeout)
	defer cancel()

	result, err := s.platform.Discover(ctx)
	switch {
	case errors.Is(err, accessory.ErrPassInProgress):
		writeError(w, http.StatusConflict, ErrCodeConflict, "a discovery pass is already running")
		return
	case errors.Is(err, platform.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "platform not started")
		return
	case errors.Is(err, miele.ErrFetch), errors.Is(err, miele.ErrParse):
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, err.Error())
		return
	}

	resp := DiscoveryResponse{
		Records:   result.Records,
		Hoods:     result.Hoods,
		Ignored:   result.Ignored,
		Malformed: result.Malformed,
		Created:   result.Count(accessory.OutcomeCreated),
		Reused:    result.Count(accessory.OutcomeReused),
		Failed:    result.Count(accessory.OutcomeFailed),
		Duration:  result.Duration.String(),
		Decisions: result.Decisions,
	}
	if resp.Decisions == nil {
		resp.Decisions = []accessory.Decision{}
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
