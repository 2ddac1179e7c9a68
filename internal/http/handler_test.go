package httpapp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/jarvis/internal/app"
	"github.com/cesargomez89/jarvis/internal/constants"
	"github.com/cesargomez89/jarvis/internal/domain"
	"github.com/cesargomez89/jarvis/internal/http/dto"
	"github.com/cesargomez89/jarvis/internal/library"
	"github.com/cesargomez89/jarvis/internal/logger"
	"github.com/cesargomez89/jarvis/internal/store"
	"github.com/cesargomez89/jarvis/internal/tagging"
	"github.com/cesargomez89/jarvis/internal/ytdlp"
)

// stubRunner "downloads" every URL into a file named after its last path
// segment.
type stubRunner struct{}

func (stubRunner) Run(ctx context.Context, req ytdlp.Request, onEvent func(ytdlp.Event)) (*ytdlp.Result, error) {
	path := filepath.Join(req.Destination, filepath.Base(req.URL)+".mp3")
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		return nil, err
	}
	onEvent(ytdlp.Event{Kind: ytdlp.EventProgress, Progress: 0.5})
	return &ytdlp.Result{Success: true, ProducedPath: path}, nil
}

type settingsMap map[string]string

func (s settingsMap) Get(key string) (string, error) { return s[key], nil }
func (s settingsMap) Set(key, value string) error   { s[key] = value; return nil }

type testServer struct {
	manager *app.Manager
	router  chi.Router
	root    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	root := t.TempDir()

	scanner := library.NewScanner(logger.Discard())
	scanner.ReadTags = func(path string) (tagging.Tags, error) {
		return tagging.Tags{Artist: "Band", Title: domain.FileStem(path), Artwork: []byte("png"), ArtworkMIME: "image/png"}, nil
	}

	m := app.NewManager(app.Options{
		Store:      store.NewCollections(store.NewMemoryKV()),
		Runner:     stubRunner{},
		Settings:   settingsMap{},
		Scanner:    scanner,
		Logger:     logger.Discard(),
		RootFolder: root,
	})
	t.Cleanup(func() { m.Close() })

	r := chi.NewRouter()
	NewHandler(m, logger.Discard()).RegisterRoutes(r)
	return &testServer{manager: m, router: r, root: root}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestEnqueueAndRun(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/queue", dto.EnqueueRequest{
		Text: "https://www.youtube.com/watch/one\nnot a url\nhttps://soundcloud.com/a/two",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	added := decodeBody[dto.ListResponse](t, rec)
	if len(added.Items) != 2 {
		t.Fatalf("Expected 2 items added, got %d", len(added.Items))
	}
	if added.Items[0].Source != "youtube" || added.Items[1].Source != "soundcloud" {
		t.Errorf("Unexpected sources %q, %q", added.Items[0].Source, added.Items[1].Source)
	}

	queue := decodeBody[dto.ListResponse](t, s.do(t, http.MethodGet, "/api/queue", nil))
	if len(queue.Items) != 2 || queue.Items[0].Status != "pending" {
		t.Fatalf("Unexpected queue %+v", queue.Items)
	}

	rec = s.do(t, http.MethodPost, "/api/queue/start", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	s.manager.Wait()

	history := decodeBody[dto.ListResponse](t, s.do(t, http.MethodGet, "/api/history", nil))
	if len(history.Items) != 2 {
		t.Fatalf("Expected 2 history items, got %d", len(history.Items))
	}
	for _, item := range history.Items {
		if item.Status != "completed" || item.Percent != "100.0%" || item.FileSize != "5 B" {
			t.Errorf("Unexpected history item %+v", item)
		}
	}
	if history.Pagination == nil || history.Pagination.TotalItems != 2 {
		t.Errorf("Unexpected pagination %+v", history.Pagination)
	}

	status := decodeBody[dto.StatusResponse](t, s.do(t, http.MethodGet, "/api/status", nil))
	if status.QueueLength != 0 || status.HistoryCount != 2 || status.Running {
		t.Errorf("Unexpected status %+v", status)
	}
	if status.DownloadsDir != filepath.Join(s.root, constants.DownloadsDirName) {
		t.Errorf("DownloadsDir = %q", status.DownloadsDir)
	}
}

func TestEnqueueValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"malformed", `{"urls":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/queue", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
	if len(s.manager.Queue()) != 0 {
		t.Error("Expected nothing enqueued")
	}
}

func TestEnqueueOnlyInvalidURLs(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/queue", dto.EnqueueRequest{URLs: []string{"ftp://x/y", "nope"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Errorf("Expected an empty items list, got %s", rec.Body.String())
	}
	if len(s.manager.Queue()) != 0 {
		t.Errorf("Expected nothing enqueued, got %d", len(s.manager.Queue()))
	}
}

func TestItemErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/items/missing", http.StatusNotFound},
		{http.MethodDelete, "/api/queue/missing", http.StatusNotFound},
		{http.MethodDelete, "/api/history/missing", http.StatusNotFound},
		{http.MethodPost, "/api/history/missing/redownload", http.StatusNotFound},
		{http.MethodDelete, "/api/items/missing/file", http.StatusNotFound},
		{http.MethodGet, "/api/items/missing/artwork", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if rec := s.do(t, tt.method, tt.path, nil); rec.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRemoveAndRedownload(t *testing.T) {
	s := newTestServer(t)
	items, err := s.manager.Enqueue([]string{"https://www.youtube.com/watch/a", "https://www.youtube.com/watch/b"})
	if err != nil {
		t.Fatal(err)
	}

	if rec := s.do(t, http.MethodDelete, "/api/queue/"+items[1].ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}
	s.manager.Start()
	s.manager.Wait()

	rec := s.do(t, http.MethodPost, "/api/history/"+items[0].ID+"/redownload", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	item := decodeBody[dto.ItemResponse](t, rec)
	if item.Status != "pending" || item.FilePath != "" {
		t.Errorf("Expected reset item, got %+v", item)
	}
	if q := s.manager.Queue(); len(q) != 1 || q[0].ID != items[0].ID || !q[0].IgnoreArchive {
		t.Errorf("Expected redownloaded item back in queue, got %+v", q)
	}
}

func TestDeleteFileAndClearHistory(t *testing.T) {
	s := newTestServer(t)
	items, _ := s.manager.Enqueue([]string{"https://www.youtube.com/watch/a", "https://www.youtube.com/watch/b"})
	s.manager.Start()
	s.manager.Wait()

	done, err := s.manager.Get(items[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec := s.do(t, http.MethodDelete, "/api/items/"+items[0].ID+"/file", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}
	if _, err := os.Stat(done.FilePath); !os.IsNotExist(err) {
		t.Errorf("Expected %s removed, stat err = %v", done.FilePath, err)
	}

	if rec := s.do(t, http.MethodDelete, "/api/history", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}
	if h := s.manager.History(); len(h) != 0 {
		t.Errorf("Expected empty history, got %d items", len(h))
	}
}

func TestImportAndArtwork(t *testing.T) {
	s := newTestServer(t)
	folder := filepath.Join(s.root, constants.DownloadsDirName)
	if err := os.MkdirAll(folder, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Band - One.mp3", "Band - Two.flac", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(folder, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	rec := s.do(t, http.MethodPost, "/api/import", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeBody[app.ImportResult](t, rec)
	if res.Imported != 2 || res.Duplicates != 0 {
		t.Errorf("Unexpected import result %+v", res)
	}

	res = decodeBody[app.ImportResult](t, s.do(t, http.MethodPost, "/api/import", dto.ImportRequest{Folder: folder}))
	if res.Imported != 0 || res.Duplicates != 2 {
		t.Errorf("Expected duplicates on second import, got %+v", res)
	}

	if rec := s.do(t, http.MethodPost, "/api/import", dto.ImportRequest{Folder: "relative"}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for relative folder, got %d", rec.Code)
	}

	imported := s.manager.History()[0]
	rec = s.do(t, http.MethodGet, "/api/items/"+imported.ID+"/artwork", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "png" || rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("Unexpected artwork response %d %q %q", rec.Code, rec.Body.String(), rec.Header().Get("Content-Type"))
	}

	if rec := s.do(t, http.MethodPost, "/api/history/"+imported.ID+"/redownload", nil); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for imported redownload, got %d", rec.Code)
	}
}

func TestRootFolder(t *testing.T) {
	s := newTestServer(t)

	got := decodeBody[dto.RootFolderRequest](t, s.do(t, http.MethodGet, "/api/settings/root", nil))
	if got.Path != s.root {
		t.Errorf("Root = %q, want %q", got.Path, s.root)
	}

	newRoot := filepath.Join(s.root, "elsewhere")
	rec := s.do(t, http.MethodPut, "/api/settings/root", dto.RootFolderRequest{Path: newRoot})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if s.manager.RootFolder() != newRoot {
		t.Errorf("Root not updated: %q", s.manager.RootFolder())
	}

	if rec := s.do(t, http.MethodPut, "/api/settings/root", dto.RootFolderRequest{Path: "music"}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for relative root, got %d", rec.Code)
	}
}

func TestClosedManager(t *testing.T) {
	s := newTestServer(t)
	s.manager.Close()

	if rec := s.do(t, http.MethodDelete, "/api/queue/x", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}
