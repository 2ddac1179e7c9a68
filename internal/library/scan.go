// Package library turns audio files already on disk into history items.
package library

import (
	"context"
	"io/fs"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/jarvis/internal/constants"
	"github.com/cesargomez89/jarvis/internal/domain"
	"github.com/cesargomez89/jarvis/internal/logger"
	"github.com/cesargomez89/jarvis/internal/tagging"
)

type TagReader func(path string) (tagging.Tags, error)

type Scanner struct {
	Logger   *logger.Logger
	ReadTags TagReader
}

func NewScanner(log *logger.Logger) *Scanner {
	if log == nil {
		log = logger.Default()
	}
	return &Scanner{
		Logger:   log.WithComponent("library"),
		ReadTags: tagging.Read,
	}
}

// IsAudioFile reports whether path has one of the importable extensions.
func IsAudioFile(path string) bool {
	return slices.Contains(constants.AudioExtensions, strings.ToLower(filepath.Ext(path)))
}

// Scan walks folder and returns one Completed Imported item per audio file,
// oldest first. Hidden files and directories are skipped. Unreadable tags are
// logged and the file is imported with what could be read.
func (s *Scanner) Scan(ctx context.Context, folder string) ([]*domain.DownloadItem, error) {
	var items []*domain.DownloadItem

	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == folder {
				return err
			}
			s.Logger.Warn("Skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != folder && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsAudioFile(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.Logger.Warn("Skipping file without metadata", "path", path, "error", err)
			return nil
		}
		items = append(items, s.buildItem(path, info.ModTime()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(items, func(a, b *domain.DownloadItem) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.FilePath, b.FilePath)
	})
	return items, nil
}

func (s *Scanner) buildItem(path string, created time.Time) *domain.DownloadItem {
	read := s.ReadTags
	if read == nil {
		read = tagging.Read
	}
	tags, err := read(path)
	if err != nil {
		s.Logger.Debug("Failed to read tags", "path", path, "error", err)
	}

	item := &domain.DownloadItem{
		ID:          uuid.New().String(),
		URL:         (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(),
		Source:      domain.SourceUnknown,
		Status:      domain.StatusCompleted,
		Progress:    1,
		CreatedAt:   created,
		CompletedAt: created,
		Variant: &domain.Imported{
			Artwork:     tags.Artwork,
			ArtworkMIME: tags.ArtworkMIME,
			Artist:      tags.Artist,
			Title:       tags.Title,
		},
	}
	item.SetFile(path)
	return item
}
