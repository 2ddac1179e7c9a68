package app

import (
	"slices"
	"strings"

	"github.com/cesargomez89/jarvis/internal/domain"
	"github.com/cesargomez89/jarvis/internal/storage"
)

// Enqueue appends one Pending item per valid URL and returns snapshots of the
// new items. Blank and malformed entries are dropped.
func (m *Manager) Enqueue(urls []string) ([]*domain.DownloadItem, error) {
	var added []*domain.DownloadItem
	err := m.do(func() {
		for _, raw := range urls {
			raw = strings.TrimSpace(raw)
			if raw == "" || !domain.ValidURL(raw) {
				continue
			}
			item := domain.NewItem(raw, m.now())
			m.queue = append(m.queue, item)
			added = append(added, item.Clone())
			m.logger.Info("Item enqueued", "item_id", item.ID, "url", raw, "source", item.Source, "playlist", item.IsPlaylist())
			m.notify(item)
		}
		if len(added) > 0 {
			m.saveQueue()
		}
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// RemoveFromQueue detaches a waiting item. Files are left alone.
func (m *Manager) RemoveFromQueue(id string) error {
	return m.doErr(func() error {
		i := indexOf(m.queue, id)
		if i < 0 {
			return ErrItemNotFound
		}
		if m.queue[i].Status == domain.StatusRunning {
			return ErrItemRunning
		}
		m.queue = slices.Delete(m.queue, i, i+1)
		m.saveQueue()
		m.logger.Info("Item removed from queue", "item_id", id)
		return nil
	})
}

// RemoveFromHistory detaches a finished item. Files are left alone.
func (m *Manager) RemoveFromHistory(id string) error {
	return m.doErr(func() error {
		i := indexOf(m.history, id)
		if i < 0 {
			return ErrItemNotFound
		}
		m.history = slices.Delete(m.history, i, i+1)
		m.saveHistory()
		m.logger.Info("Item removed from history", "item_id", id)
		return nil
	})
}

// DeleteFile removes the item's downloaded files, best effort, and then the
// item itself from whichever collection holds it.
func (m *Manager) DeleteFile(id string) error {
	return m.doErr(func() error {
		item, i, inQueue := m.find(id)
		if item == nil {
			return ErrItemNotFound
		}
		if item.Status == domain.StatusRunning {
			return ErrItemRunning
		}

		for path, err := range storage.RemoveFiles(item.Files()) {
			m.logger.Warn("Failed to delete file", "item_id", id, "path", path, "error", err)
		}

		if inQueue {
			m.queue = slices.Delete(m.queue, i, i+1)
			m.saveQueue()
		} else {
			m.history = slices.Delete(m.history, i, i+1)
			m.saveHistory()
		}
		m.logger.Info("Item deleted", "item_id", id, "files", len(item.Files()))
		return nil
	})
}

// Redownload resets a history item in place and moves it to the end of the
// queue. The next run bypasses the download archive.
func (m *Manager) Redownload(id string) error {
	return m.doErr(func() error {
		i := indexOf(m.history, id)
		if i < 0 {
			return ErrItemNotFound
		}
		item := m.history[i]
		if item.Imported() != nil {
			return ErrNotRedownloadable
		}

		item.Reset()
		item.IgnoreArchive = true
		m.history = slices.Delete(m.history, i, i+1)
		m.queue = append(m.queue, item)
		// Queue first: a crash in between leaves the item in both
		// collections, and recovery keeps the queued copy.
		m.saveQueue()
		m.saveHistory()
		m.logger.Info("Item requeued", "item_id", id, "url", item.URL)
		m.notify(item)
		return nil
	})
}

func (m *Manager) ClearHistory() error {
	return m.doErr(func() error {
		n := len(m.history)
		m.history = nil
		m.saveHistory()
		m.logger.Info("History cleared", "items", n)
		return nil
	})
}
