package store

import (
	"fmt"

	"github.com/cesargomez89/jarvis/internal/constants"
	"github.com/cesargomez89/jarvis/internal/domain"
)

// Collections persists the queue and history as whole encoded collections.
type Collections struct {
	kv KV
}

func NewCollections(kv KV) *Collections {
	return &Collections{kv: kv}
}

func (c *Collections) SaveQueue(items []*domain.DownloadItem) error {
	return c.save(constants.KeyQueue, items)
}

func (c *Collections) LoadQueue() ([]*domain.DownloadItem, error) {
	return c.load(constants.KeyQueue)
}

func (c *Collections) SaveHistory(items []*domain.DownloadItem) error {
	return c.save(constants.KeyHistory, items)
}

func (c *Collections) LoadHistory() ([]*domain.DownloadItem, error) {
	return c.load(constants.KeyHistory)
}

func (c *Collections) save(key string, items []*domain.DownloadItem) error {
	if err := c.kv.Set(key, EncodeItems(items)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (c *Collections) load(key string) ([]*domain.DownloadItem, error) {
	data, err := c.kv.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	items, err := DecodeItems(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return items, nil
}
