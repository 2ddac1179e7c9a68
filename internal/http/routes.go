package httpapp

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/jarvis/internal/http/dto"
)

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	layout := h.Manager.Layout()
	h.writeJSON(w, http.StatusOK, dto.StatusResponse{
		RootFolder:   layout.Root,
		DownloadsDir: layout.DownloadsDir(),
		QueueLength:  len(h.Manager.Queue()),
		HistoryCount: len(h.Manager.History()),
		Running:      h.Manager.Running(),
	})
}

func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	items := h.Manager.Queue()
	h.writeJSON(w, http.StatusOK, dto.ListResponse{
		Items: dto.NewItemResponses(items, h.Now(), fileSize),
	})
}

func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req dto.EnqueueRequest
	if !h.decode(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	added, err := h.Manager.Enqueue(req.Lines())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, dto.ListResponse{
		Items: dto.NewItemResponses(added, h.Now(), nil),
	})
}

func (h *Handler) StartQueue(w http.ResponseWriter, r *http.Request) {
	started := h.Manager.Start()
	h.writeJSON(w, http.StatusAccepted, map[string]bool{"started": started})
}

func (h *Handler) RemoveFromQueue(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.RemoveFromQueue(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListHistory pages the history with ?page= and ?page_size=.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	items := h.Manager.History()
	p := dto.NewPagination(page, size, len(items))
	start, end := p.Bounds()

	h.writeJSON(w, http.StatusOK, dto.ListResponse{
		Pagination: p,
		Items:      dto.NewItemResponses(items[start:end], h.Now(), fileSize),
	})
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.ClearHistory(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveFromHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.RemoveFromHistory(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Redownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Manager.Redownload(id); err != nil {
		h.writeError(w, err)
		return
	}
	item, err := h.Manager.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, dto.NewItemResponse(item, h.Now(), nil))
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewItemResponse(item, h.Now(), fileSize))
}

func (h *Handler) Artwork(w http.ResponseWriter, r *http.Request) {
	item, err := h.Manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	imported := item.Imported()
	if imported == nil || len(imported.Artwork) == 0 {
		http.NotFound(w, r)
		return
	}
	if imported.ArtworkMIME != "" {
		w.Header().Set("Content-Type", imported.ArtworkMIME)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(imported.Artwork); err != nil {
		h.Logger.Debug("Failed to write artwork", "error", err)
	}
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.DeleteFile(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req dto.ImportRequest
	if !h.decode(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}

	res, err := h.Manager.ImportExisting(r.Context(), req.Folder)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) GetRootFolder(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, dto.RootFolderRequest{Path: h.Manager.RootFolder()})
}

func (h *Handler) SetRootFolder(w http.ResponseWriter, r *http.Request) {
	var req dto.RootFolderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeValidation(w, errs)
		return
	}
	if err := h.Manager.SetRootFolder(req.Path); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.RootFolderRequest{Path: h.Manager.RootFolder()})
}
