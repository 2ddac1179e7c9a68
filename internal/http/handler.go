// Package httpapp serves the download manager over a JSON API.
package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/jarvis/internal/app"
	"github.com/cesargomez89/jarvis/internal/http/dto"
	"github.com/cesargomez89/jarvis/internal/logger"
)

type Handler struct {
	Manager *app.Manager
	Logger  *logger.Logger
	Now     func() time.Time
}

func NewHandler(m *app.Manager, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		Manager: m,
		Logger:  log.WithComponent("http"),
		Now:     time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)

		r.Get("/queue", h.ListQueue)
		r.Post("/queue", h.Enqueue)
		r.Post("/queue/start", h.StartQueue)
		r.Delete("/queue/{id}", h.RemoveFromQueue)

		r.Get("/history", h.ListHistory)
		r.Delete("/history", h.ClearHistory)
		r.Delete("/history/{id}", h.RemoveFromHistory)
		r.Post("/history/{id}/redownload", h.Redownload)

		r.Get("/items/{id}", h.GetItem)
		r.Get("/items/{id}/artwork", h.Artwork)
		r.Delete("/items/{id}/file", h.DeleteFile)

		r.Post("/import", h.Import)

		r.Get("/settings/root", h.GetRootFolder)
		r.Put("/settings/root", h.SetRootFolder)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrItemRunning), errors.Is(err, app.ErrNotRedownloadable):
		status = http.StatusConflict
	case errors.Is(err, app.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, app.ErrImportUnavailable):
		status = http.StatusNotImplemented
	default:
		h.Logger.Error("Request failed", "error", err)
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) writeValidation(w http.ResponseWriter, errs []dto.ValidationError) {
	h.writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:  dto.ToResponse(errs),
		Fields: dto.ToMap(errs),
	})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func fileSize(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0, false
	}
	return info.Size(), true
}
