package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Dan9191/aromastream/internal/models"
	"github.com/Dan9191/aromastream/internal/pagination"
	"github.com/Dan9191/aromastream/internal/service"
	"github.com/gorilla/mux"
)

const multipartMemory = 32 << 20

type videoResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	File        string    `json:"file"`
	Views       int64     `json:"views"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *Handler) toVideoResponse(r *http.Request, v models.Video) videoResponse {
	return videoResponse{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		File:        absoluteURL(r, h.svc.FileURL(v.File)),
		Views:       v.Views,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

type videoLister func(ctx context.Context, p pagination.Params) ([]models.Video, int, error)

// writeVideoPage runs list for the requested page and writes the envelope
func (h *Handler) writeVideoPage(w http.ResponseWriter, r *http.Request, list videoLister) {
	p, err := pagination.FromRequest(r, h.cfg.PageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	videos, count, err := list(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	results := make([]videoResponse, 0, len(videos))
	for _, v := range videos {
		results = append(results, h.toVideoResponse(r, v))
	}
	page, err := pagination.Build(pagination.RequestURL(r), p, count, results)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListVideos lists videos ranked by views
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	h.writeVideoPage(w, r, h.svc.ListVideos)
}

// PopularVideos lists videos ranked by views
func (h *Handler) PopularVideos(w http.ResponseWriter, r *http.Request) {
	h.writeVideoPage(w, r, h.svc.PopularVideos)
}

// SearchVideos lists videos matching the query parameter
func (h *Handler) SearchVideos(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	h.writeVideoPage(w, r, func(ctx context.Context, p pagination.Params) ([]models.Video, int, error) {
		return h.svc.SearchVideos(ctx, query, p)
	})
}

// GetVideo returns one video and counts the view
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(mux.Vars(r)["id"])
	if !ok {
		writeErr(w, http.StatusBadRequest, map[string]string{"video": "Invalid video ID."})
		return
	}
	video, err := h.svc.GetVideo(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toVideoResponse(r, *video))
}

// CreateVideo handles multipart video uploads
func (h *Handler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, "Request body too large.")
			return
		}
		writeErr(w, http.StatusBadRequest, "Multipart form parse error.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	upload := service.VideoUpload{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		upload.Filename = header.Filename
		upload.Size = header.Size
		upload.Content = file
	case errors.Is(err, http.ErrMissingFile):
	default:
		writeErr(w, http.StatusBadRequest, "Multipart form parse error.")
		return
	}

	video, err := h.svc.CreateVideo(r.Context(), upload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toVideoResponse(r, *video))
}

// DeleteVideo removes a video
func (h *Handler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(mux.Vars(r)["id"])
	if !ok {
		writeErr(w, http.StatusBadRequest, map[string]string{"video": "Invalid video ID."})
		return
	}
	if err := h.svc.DeleteVideo(r.Context(), userID(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Feed renders the first page of popular videos as RSS
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	videos, _, err := h.svc.PopularVideos(r.Context(), pagination.Params{Page: 1, Size: h.cfg.PageSize})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := h.feedBuilder(r).Bytes(videos)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
