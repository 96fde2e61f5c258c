package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dan9191/aromastream/internal/config"
	"github.com/Dan9191/aromastream/internal/feed"
	"github.com/Dan9191/aromastream/internal/middleware"
	"github.com/Dan9191/aromastream/internal/pagination"
	"github.com/Dan9191/aromastream/internal/service"
	"github.com/sirupsen/logrus"
)

const maxJSONBody = 1 << 20

type Handler struct {
	svc *service.Service
	log *logrus.Logger
	cfg *config.Config
}

func NewHandler(svc *service.Service, log *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{svc: svc, log: log, cfg: cfg}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr sends {"detail": detail}. detail is a message or a field map.
func writeErr(w http.ResponseWriter, code int, detail interface{}) {
	writeJSON(w, code, map[string]interface{}{"detail": detail})
}

// writeError converts a service error into its HTTP response
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	var upErr *service.UpstreamError
	switch {
	case errors.As(err, &verr):
		writeErr(w, http.StatusBadRequest, verr.Fields)
	case errors.As(err, &upErr):
		if upErr.StatusCode == 0 {
			writeErr(w, http.StatusBadGateway, "Device unreachable.")
			return
		}
		writeJSON(w, upErr.StatusCode, map[string]interface{}{
			"detail":        fmt.Sprintf("Device responded with status %d.", upErr.StatusCode),
			"device_status": upErr.StatusCode,
		})
	case errors.Is(err, service.ErrInvalidOrExpired):
		writeErr(w, http.StatusBadRequest, "Invalid or expired confirmation code.")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeErr(w, http.StatusUnauthorized, "No active account found with the given credentials")
	case errors.Is(err, service.ErrUnauthorized):
		writeErr(w, http.StatusUnauthorized, "Given token not valid for any token type")
	case errors.Is(err, service.ErrForbidden):
		writeErr(w, http.StatusForbidden, "You do not have permission to perform this action.")
	case errors.Is(err, service.ErrNotFound):
		writeErr(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, pagination.ErrInvalidPage):
		writeErr(w, http.StatusNotFound, "Invalid page.")
	default:
		h.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Errorf("Unhandled error: %v", err)
		writeErr(w, http.StatusInternalServerError, "Internal server error.")
	}
}

// decodeJSON reads a JSON object body into v. An empty body decodes as {}.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeErr(w, http.StatusRequestEntityTooLarge, "Request body too large.")
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Sprintf("JSON parse error - %v", err))
		return false
	}
	return true
}

// userID returns the authenticated user; routes that call it sit behind the
// required auth middleware.
func userID(r *http.Request) int64 {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}

// scalarString accepts a JSON string or number and returns its text.
func scalarString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// absoluteURL resolves a site-relative link against the request host.
func absoluteURL(r *http.Request, link string) string {
	if !strings.HasPrefix(link, "/") {
		return link
	}
	u := pagination.RequestURL(r)
	return u.Scheme + "://" + u.Host + link
}

// parseID reads a numeric path id. Digit strings too large for int64 name no
// row, so they come back as -1 for the lookup to report as missing.
func parseID(raw string) (int64, bool) {
	if raw == "" || strings.TrimLeft(raw, "0123456789") != "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return -1, true
	}
	return id, true
}

func (h *Handler) feedBuilder(r *http.Request) *feed.Builder {
	return feed.NewBuilder(
		feed.Channel{
			Title:       "AromaStream",
			Link:        absoluteURL(r, apiPrefix+"/videos/popular"),
			Description: "Most watched AromaStream videos",
		},
		func(key string) string { return absoluteURL(r, h.svc.FileURL(key)) },
		func(id int64) string { return absoluteURL(r, fmt.Sprintf("%s/videos/%d", apiPrefix, id)) },
	)
}

// Health reports whether the store is reachable
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Health(r.Context()); err != nil {
		h.log.Errorf("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
