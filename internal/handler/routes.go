package handler

import (
	"net/http"
	"os"
	"strings"

	"github.com/Dan9191/aromastream/internal/middleware"
	"github.com/gorilla/mux"
)

const apiPrefix = "/api/v1"

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// MediaRoot, when set, is served under MediaURL.
	MediaRoot string
	MediaURL  string
}

// NewRouter wires every route of the API
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	return middleware.StripTrailingSlash(middleware.RequestLogger(h.log)(newMux(h, opts)))
}

func newMux(h *Handler, opts RouterOptions) *mux.Router {
	tokens := h.svc.Tokens()
	required := middleware.AuthMiddleware(tokens, h.log)
	optional := middleware.OptionalAuthMiddleware(tokens, h.log)
	auth := func(fn http.HandlerFunc) http.Handler { return required(fn) }
	public := func(fn http.HandlerFunc) http.Handler { return optional(fn) }

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusNotFound, "Not found.")
	})
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, "Method \""+r.Method+"\" not allowed.")
	})

	r := mux.NewRouter()
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notAllowed

	r.HandleFunc("/healthz", h.Health).Methods("GET")

	api := r.PathPrefix(apiPrefix).Subrouter()
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = notAllowed
	api.HandleFunc("/schema", h.Schema).Methods("GET")
	api.HandleFunc("/schema/swagger-ui", h.SwaggerUI).Methods("GET")
	api.HandleFunc("/schema/redoc", h.Redoc).Methods("GET")
	// Public routes
	api.HandleFunc("/login", h.Login).Methods("POST")
	api.HandleFunc("/signup", h.Signup).Methods("POST")
	api.HandleFunc("/token/refresh", h.RefreshToken).Methods("POST")
	// Protected routes
	api.Handle("/user", auth(h.Profile)).Methods("GET")
	api.Handle("/user/update", auth(h.UpdateProfile)).Methods("POST")
	api.Handle("/password_reset", auth(h.RequestPasswordChange)).Methods("POST")
	api.Handle("/password_reset/confirm", auth(h.ConfirmPasswordChange)).Methods("POST")
	api.Handle("/arduino/trigger", auth(h.Trigger)).Methods("POST")
	// Read is public, write requires a token
	api.Handle("/videos", public(h.ListVideos)).Methods("GET")
	api.Handle("/videos", auth(h.CreateVideo)).Methods("POST")
	api.Handle("/videos/popular", public(h.PopularVideos)).Methods("GET")
	api.Handle("/videos/search", public(h.SearchVideos)).Methods("GET")
	api.Handle("/videos/feed", public(h.Feed)).Methods("GET")
	api.Handle("/videos/{id}", public(h.GetVideo)).Methods("GET")
	api.Handle("/videos/{id}", auth(h.DeleteVideo)).Methods("DELETE")
	api.Handle("/timestamps", auth(h.CreateTimeStamp)).Methods("POST")
	api.Handle("/timestamps/{video_id}", public(h.ListTimeStamps)).Methods("GET")

	if opts.MediaRoot != "" && strings.HasPrefix(opts.MediaURL, "/") {
		prefix := "/" + strings.Trim(opts.MediaURL, "/") + "/"
		r.PathPrefix(prefix).Handler(
			http.StripPrefix(prefix, http.FileServer(mediaDir{http.Dir(opts.MediaRoot)})),
		).Methods("GET", "HEAD")
	}

	return r
}

// mediaDir serves stored files without directory listings.
type mediaDir struct {
	fs http.FileSystem
}

func (d mediaDir) Open(name string) (http.File, error) {
	f, err := d.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
