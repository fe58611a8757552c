package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/idleclicker/game/engine"
)

func testRecord(t *testing.T, id string, points int64) *Record {
	t.Helper()
	config := engine.DefaultEconomyConfig()
	snapshot, _ := engine.LoadSnapshot(nil, config, engine.Identity{ID: id, DisplayName: id})
	snapshot.Player.Points = points
	snapshot.Revision = points
	snapshot.SavedAt = testEpoch
	record, err := NewRecord(id, "default", testEpoch, snapshot)
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	return record
}

func snapshotPoints(t *testing.T, record *Record) int64 {
	t.Helper()
	var snap struct {
		Player engine.Player `json:"player"`
	}
	if err := json.Unmarshal(record.Snapshot, &snap); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	return snap.Player.Points
}

func TestFilePersistence(t *testing.T) {
	tempDir := t.TempDir()
	persistence, err := NewFilePersistence(tempDir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	t.Run("Save and Load Record", func(t *testing.T) {
		if err := persistence.Save(testRecord(t, "test1", 42)); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}
		if !persistence.Exists("test1") {
			t.Error("Session file should exist after save")
		}

		loaded, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load record: %v", err)
		}
		if loaded.Economy != "default" || loaded.Revision != 42 || loaded.DisplayName != "TEST1" {
			t.Errorf("Unexpected record metadata: %+v", loaded)
		}
		if !loaded.CreatedAt.Equal(testEpoch) {
			t.Errorf("Expected created at epoch, got %v", loaded.CreatedAt)
		}
		if got := snapshotPoints(t, loaded); got != 42 {
			t.Errorf("Expected 42 points in snapshot, got %d", got)
		}
	})

	t.Run("Overwrite Leaves No Temp Files", func(t *testing.T) {
		persistence.Save(testRecord(t, "test1", 43))
		entries, _ := os.ReadDir(tempDir)
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".tmp") {
				t.Errorf("Unexpected temp file %s", e.Name())
			}
		}
		loaded, _ := persistence.Load("test1")
		if snapshotPoints(t, loaded) != 43 {
			t.Error("Expected overwrite to win")
		}
	})

	t.Run("List All Records", func(t *testing.T) {
		persistence.Save(testRecord(t, "test2", 1))
		os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("x"), 0644)
		os.WriteFile(filepath.Join(tempDir, ".partial-1.tmp"), []byte("x"), 0644)

		ids, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if len(ids) != 2 {
			t.Errorf("Expected 2 records, got %v", ids)
		}
	})

	t.Run("Corrupt File Yields Raw Snapshot", func(t *testing.T) {
		os.WriteFile(filepath.Join(tempDir, "broken.json"), []byte("{not json"), 0644)

		record, err := persistence.Load("broken")
		if err != nil {
			t.Fatalf("Expected corrupt file to load, got %v", err)
		}
		if record.ID != "broken" || string(record.Snapshot) != "{not json" {
			t.Errorf("Expected raw bytes as snapshot, got %+v", record)
		}
	})

	t.Run("Delete Record", func(t *testing.T) {
		if err := persistence.Delete("test2"); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		if persistence.Exists("test2") {
			t.Error("Record should not exist after delete")
		}
	})

	t.Run("Error Cases", func(t *testing.T) {
		if _, err := persistence.Load("nonexistent"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if err := persistence.Delete("nonexistent"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if err := persistence.Save(nil); err == nil {
			t.Error("Expected error saving nil record")
		}
	})
}
