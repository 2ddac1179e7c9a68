package store

import (
	"path/filepath"
	"testing"

	"github.com/cesargomez89/jarvis/internal/constants"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() {
		if cErr := db.Close(); cErr != nil {
			t.Logf("db.Close error: %v", cErr)
		}
	})
	return db
}

func TestDB_KV(t *testing.T) {
	db := setupTestDB(t)

	value, err := db.Get("missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != nil {
		t.Errorf("Expected nil for missing key, got %v", value)
	}

	if err := db.Set("k", []byte("one")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := db.Set("k", []byte("two")); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}
	value, err = db.Get("k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(value) != "two" {
		t.Errorf("Expected %q, got %q", "two", value)
	}
}

func TestDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	db, err := NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	c := NewCollections(db)
	if err := c.SaveHistory(sampleItems()); err != nil {
		t.Fatalf("SaveHistory failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("Failed to reopen db: %v", err)
	}
	defer db.Close()

	history, err := NewCollections(db).LoadHistory()
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(history) != len(sampleItems()) {
		t.Fatalf("Expected %d items after reopen, got %d", len(sampleItems()), len(history))
	}
	if history[1].Playlist() == nil || history[1].Playlist().Title != "Summer" {
		t.Errorf("Playlist payload lost: %+v", history[1].Variant)
	}
}

func TestCollections(t *testing.T) {
	tests := []struct {
		name string
		kv   KV
	}{
		{"memory", NewMemoryKV()},
		{"sqlite", setupTestDB(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollections(tt.kv)

			queue, err := c.LoadQueue()
			if err != nil {
				t.Fatalf("LoadQueue failed: %v", err)
			}
			if len(queue) != 0 {
				t.Errorf("Expected empty queue, got %d", len(queue))
			}

			items := sampleItems()
			if err := c.SaveQueue(items[:2]); err != nil {
				t.Fatalf("SaveQueue failed: %v", err)
			}
			if err := c.SaveHistory(items[2:]); err != nil {
				t.Fatalf("SaveHistory failed: %v", err)
			}

			queue, err = c.LoadQueue()
			if err != nil {
				t.Fatalf("LoadQueue failed: %v", err)
			}
			history, err := c.LoadHistory()
			if err != nil {
				t.Fatalf("LoadHistory failed: %v", err)
			}
			if len(queue) != 2 || queue[0].ID != "a" || queue[1].ID != "b" {
				t.Errorf("Unexpected queue %+v", queue)
			}
			if len(history) != 2 || history[0].ID != "c" || history[1].ID != "d" {
				t.Errorf("Unexpected history %+v", history)
			}

			raw, err := tt.kv.Get(constants.KeyQueue)
			if err != nil || len(raw) == 0 {
				t.Errorf("Expected queue under %q, err=%v", constants.KeyQueue, err)
			}
		})
	}
}

func TestCollections_CorruptValue(t *testing.T) {
	kv := NewMemoryKV()
	_ = kv.Set(constants.KeyHistory, []byte{0xff, 0xff, 0xff})

	if _, err := NewCollections(kv).LoadHistory(); err == nil {
		t.Error("Expected decode error for corrupt history")
	}
}

func TestMemoryKV_CopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	buf := []byte("abc")
	_ = kv.Set("k", buf)
	buf[0] = 'x'

	got, _ := kv.Get("k")
	if string(got) != "abc" {
		t.Errorf("Expected stored copy, got %q", got)
	}
	got[1] = 'y'
	again, _ := kv.Get("k")
	if string(again) != "abc" {
		t.Errorf("Expected returned copy, got %q", again)
	}
}

func TestSettingsRepo(t *testing.T) {
	repo := NewSettingsRepo(setupTestDB(t))

	value, err := repo.Get(constants.SettingRootFolder)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "" {
		t.Errorf("Expected empty value, got %q", value)
	}

	if err := repo.Set(constants.SettingRootFolder, "/music"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := repo.Set(constants.SettingRootFolder, "/srv/music"); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}
	value, _ = repo.Get(constants.SettingRootFolder)
	if value != "/srv/music" {
		t.Errorf("Expected /srv/music, got %q", value)
	}

	if err := repo.Delete(constants.SettingRootFolder); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	value, _ = repo.Get(constants.SettingRootFolder)
	if value != "" {
		t.Errorf("Expected empty after delete, got %q", value)
	}
}
