package dto

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cesargomez89/jarvis/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

type PlaylistResponse struct {
	Title            string   `json:"title,omitempty"`
	Files            []string `json:"files,omitempty"`
	TotalTracks      int      `json:"total_tracks"`
	DownloadedTracks int      `json:"downloaded_tracks"`
	SkippedTracks    int      `json:"skipped_tracks"`
	CurrentTrack     int      `json:"current_track"`
}

type ItemResponse struct {
	Playlist     *PlaylistResponse `json:"playlist,omitempty"`
	ID           string            `json:"id"`
	URL          string            `json:"url"`
	Kind         string            `json:"kind"`
	Title        string            `json:"title"`
	Source       string            `json:"source"`
	Status       string            `json:"status"`
	FileName     string            `json:"file_name,omitempty"`
	FilePath     string            `json:"file_path,omitempty"`
	FileSize     string            `json:"file_size,omitempty"`
	Error        string            `json:"error,omitempty"`
	Artist       string            `json:"artist,omitempty"`
	ArtworkMIME  string            `json:"artwork_mime,omitempty"`
	CreatedAt    string            `json:"created_at"`
	CreatedAgo   string            `json:"created_ago"`
	CompletedAt  string            `json:"completed_at,omitempty"`
	CompletedAgo string            `json:"completed_ago,omitempty"`
	Percent      string            `json:"percent"`
	Progress     float64           `json:"progress"`
	HasArtwork   bool              `json:"has_artwork"`
}

// SizeFunc reports the size in bytes of a file, or false when unknown.
type SizeFunc func(path string) (int64, bool)

func NewItemResponse(item *domain.DownloadItem, now time.Time, size SizeFunc) ItemResponse {
	resp := ItemResponse{
		ID:         item.ID,
		URL:        item.URL,
		Kind:       Kind(item),
		Title:      item.DisplayTitle(),
		Source:     string(item.Source),
		Status:     string(item.Status),
		FileName:   item.FileName,
		FilePath:   item.FilePath,
		Error:      item.ErrorMessage,
		Progress:   item.Progress,
		Percent:    humanize.FormatFloat("#,###.#", item.Progress*100) + "%",
		CreatedAt:  item.CreatedAt.Format(timeFormat),
		CreatedAgo: humanize.RelTime(item.CreatedAt, now, "ago", "from now"),
	}
	if !item.CompletedAt.IsZero() {
		resp.CompletedAt = item.CompletedAt.Format(timeFormat)
		resp.CompletedAgo = humanize.RelTime(item.CompletedAt, now, "ago", "from now")
	}
	if size != nil && item.FilePath != "" {
		if n, ok := size(item.FilePath); ok {
			resp.FileSize = humanize.IBytes(uint64(n))
		}
	}

	switch v := item.Variant.(type) {
	case *domain.Playlist:
		resp.Playlist = &PlaylistResponse{
			Title:            v.Title,
			Files:            v.Files,
			TotalTracks:      v.TotalTracks,
			DownloadedTracks: v.DownloadedTracks,
			SkippedTracks:    v.SkippedTracks,
			CurrentTrack:     v.CurrentTrack,
		}
	case *domain.Imported:
		resp.Artist = v.Artist
		resp.HasArtwork = len(v.Artwork) > 0
		resp.ArtworkMIME = v.ArtworkMIME
	}
	return resp
}

func NewItemResponses(items []*domain.DownloadItem, now time.Time, size SizeFunc) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewItemResponse(item, now, size))
	}
	return out
}

// Kind names the item's variant.
func Kind(item *domain.DownloadItem) string {
	switch item.Variant.(type) {
	case *domain.Playlist:
		return "playlist"
	case *domain.Imported:
		return "imported"
	default:
		return "single"
	}
}

type ListResponse struct {
	Pagination *Pagination    `json:"pagination,omitempty"`
	Items      []ItemResponse `json:"items"`
}

type StatusResponse struct {
	RootFolder   string `json:"root_folder"`
	DownloadsDir string `json:"downloads_dir"`
	QueueLength  int    `json:"queue_length"`
	HistoryCount int    `json:"history_count"`
	Running      bool   `json:"running"`
}
