package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/pulse/internal/domain/model"
)

// PulseDependencies defines the interface for resolving pulse requests.
type PulseDependencies interface {
	Resolve(ctx context.Context, req model.PulseRequest) (*model.PulseResult, error)
}

// PulseHandler handles pulse requests.
type PulseHandler struct {
	deps         PulseDependencies
	maxBodyBytes int64
}

// NewPulseHandler creates a new pulse handler.
func NewPulseHandler(deps PulseDependencies, maxBodyBytes int64) *PulseHandler {
	return &PulseHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandlePostPulse handles POST /pulse requests. A request that matched no
// game is still a 200 with matched=false.
func (h *PulseHandler) HandlePostPulse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var body pulseRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", badRequest(err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(err))
		return
	}
	req, err := body.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(err))
		return
	}

	res, err := h.deps.Resolve(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_unavailable", errors.Join(ErrUpstream, err))
		return
	}
	writeJSON(w, http.StatusOK, pulseResponse{Matched: res != nil, Result: res})
}
