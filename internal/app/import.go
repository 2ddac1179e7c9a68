package app

import (
	"context"
	"fmt"
	"strings"
)

type ImportResult struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
}

// ImportExisting scans folder for audio files and adds the ones not already
// in history as Completed items. An empty folder means the downloads folder
// under the current root. The scan runs on the caller's goroutine.
func (m *Manager) ImportExisting(ctx context.Context, folder string) (ImportResult, error) {
	if m.scanner == nil {
		return ImportResult{}, ErrImportUnavailable
	}
	if folder == "" {
		folder = m.Layout().DownloadsDir()
	}

	items, err := m.scanner.Scan(ctx, folder)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to scan %s: %w", folder, err)
	}

	var res ImportResult
	err = m.do(func() {
		seen := make(map[string]struct{}, len(m.history)+len(items))
		for _, item := range m.history {
			if item.FileName != "" {
				seen[stemKey(item.FileName)] = struct{}{}
			}
		}
		for _, item := range items {
			key := stemKey(item.FileName)
			if _, dup := seen[key]; dup {
				res.Duplicates++
				continue
			}
			seen[key] = struct{}{}
			m.history = append(m.history, item)
			res.Imported++
			m.notify(item)
		}
		if res.Imported > 0 {
			m.saveHistory()
		}
	})
	if err != nil {
		return ImportResult{}, err
	}

	m.logger.Info("Import finished", "folder", folder, "imported", res.Imported, "duplicates", res.Duplicates)
	return res, nil
}

func stemKey(stem string) string {
	return strings.ToLower(strings.TrimSpace(stem))
}
