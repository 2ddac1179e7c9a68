package domain

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Source string

const (
	SourceSoundCloud Source = "soundcloud"
	SourceBandcamp   Source = "bandcamp"
	SourceYouTube    Source = "youtube"
	SourceUnknown    Source = "unknown"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further automatic transition occurs from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusSkipped || s == StatusFailed
}

// Variant is the kind-specific payload of a DownloadItem. It is one of
// Single, *Playlist or *Imported.
type Variant interface {
	variant()
}

// Single is the payload of a one-file download.
type Single struct{}

// Playlist tracks a collection download as reported by yt-dlp.
type Playlist struct {
	Title            string   `json:"title,omitempty"`
	Files            []string `json:"files,omitempty"`
	TotalTracks      int      `json:"total_tracks"`
	DownloadedTracks int      `json:"downloaded_tracks"`
	SkippedTracks    int      `json:"skipped_tracks"`
	CurrentTrack     int      `json:"current_track"`
}

// Imported describes an item built from a file already on disk.
type Imported struct {
	ArtworkMIME string `json:"artwork_mime,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Title       string `json:"title,omitempty"`
	Artwork     []byte `json:"-"`
}

func (Single) variant()    {}
func (*Playlist) variant() {}
func (*Imported) variant() {}

// DownloadItem represents one requested download and its lifecycle state.
type DownloadItem struct { //nolint:govet // field ordering prioritizes readability over memory alignment
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	Source        Source    `json:"source"`
	Status        Status    `json:"status"`
	Progress      float64   `json:"progress"`
	FileName      string    `json:"file_name,omitempty"`
	FilePath      string    `json:"file_path,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	IgnoreArchive bool      `json:"ignore_archive,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CompletedAt   time.Time `json:"completed_at"`
	Variant       Variant   `json:"-"`
}

// NewItem classifies rawURL and returns a Pending item with a fresh ID.
func NewItem(rawURL string, now time.Time) *DownloadItem {
	source, isPlaylist := Classify(rawURL)
	item := &DownloadItem{
		ID:        uuid.New().String(),
		URL:       rawURL,
		Source:    source,
		Status:    StatusPending,
		CreatedAt: now,
		Variant:   Single{},
	}
	if isPlaylist {
		item.Variant = &Playlist{}
	}
	return item
}

func (i *DownloadItem) IsPlaylist() bool {
	_, ok := i.Variant.(*Playlist)
	return ok
}

// Playlist returns the playlist payload, or nil for other variants.
func (i *DownloadItem) Playlist() *Playlist {
	p, _ := i.Variant.(*Playlist)
	return p
}

// Imported returns the import payload, or nil for other variants.
func (i *DownloadItem) Imported() *Imported {
	p, _ := i.Variant.(*Imported)
	return p
}

// SetFile records the produced artifact; FileName is the path's stem.
func (i *DownloadItem) SetFile(path string) {
	i.FilePath = path
	i.FileName = FileStem(path)
}

// Files lists every artifact the item is known to have produced.
func (i *DownloadItem) Files() []string {
	var files []string
	if p := i.Playlist(); p != nil {
		files = append(files, p.Files...)
	}
	if i.FilePath != "" && !slices.Contains(files, i.FilePath) {
		files = append(files, i.FilePath)
	}
	return files
}

// Reset returns the item to Pending and clears everything a run produced.
// Identity, URL and variant kind are kept.
func (i *DownloadItem) Reset() {
	i.Status = StatusPending
	i.Progress = 0
	i.FileName = ""
	i.FilePath = ""
	i.ErrorMessage = ""
	i.CompletedAt = time.Time{}
	if i.IsPlaylist() {
		i.Variant = &Playlist{}
	}
}

// Clone returns a deep copy safe to hand outside the owning goroutine.
func (i *DownloadItem) Clone() *DownloadItem {
	c := *i
	switch v := i.Variant.(type) {
	case *Playlist:
		p := *v
		p.Files = slices.Clone(v.Files)
		c.Variant = &p
	case *Imported:
		m := *v
		m.Artwork = slices.Clone(v.Artwork)
		c.Variant = &m
	case nil:
		c.Variant = Single{}
	}
	return &c
}

// DisplayTitle returns the best human-readable label for the item.
func (i *DownloadItem) DisplayTitle() string {
	if p := i.Playlist(); p != nil && p.Title != "" {
		return p.Title
	}
	if m := i.Imported(); m != nil && m.Title != "" {
		if m.Artist != "" {
			return m.Artist + " - " + m.Title
		}
		return m.Title
	}
	if i.FileName != "" {
		return i.FileName
	}
	return i.URL
}

// FileStem returns the base name of path without its extension.
func FileStem(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
