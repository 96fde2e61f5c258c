package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Dan9191/aromastream/internal/pagination"
	"github.com/Dan9191/aromastream/internal/service"
	"github.com/gorilla/mux"
)

// CreateTimeStamp attaches an aroma timestamp to a video
func (h *Handler) CreateTimeStamp(w http.ResponseWriter, r *http.Request) {
	var req service.TimeStampInput
	if !h.decodeJSON(w, r, &req) {
		return
	}
	ts, err := h.svc.CreateTimeStamp(r.Context(), userID(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ts)
}

// ListTimeStamps lists a video's timestamps in creation order
func (h *Handler) ListTimeStamps(w http.ResponseWriter, r *http.Request) {
	videoID, ok := parseID(mux.Vars(r)["video_id"])
	if !ok {
		writeErr(w, http.StatusBadRequest, "Invalid video ID.")
		return
	}
	p, err := pagination.FromRequest(r, h.cfg.PageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	timestamps, count, err := h.svc.ListTimeStamps(r.Context(), videoID, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := pagination.Build(pagination.RequestURL(r), p, count, timestamps)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Trigger relays a timestamp's aroma to the dispenser
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}

	var timestampID *int64
	if raw, ok := scalarString(req.Timestamp); ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeErr(w, http.StatusBadRequest, map[string]string{"timestamp": "A valid integer is required."})
			return
		}
		timestampID = &id
	}

	if err := h.svc.Trigger(r.Context(), timestampID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
