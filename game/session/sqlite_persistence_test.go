package session

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestSQLite(t *testing.T) *SQLitePersistence {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "worlds.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLitePersistence(t *testing.T) {
	store := openTestSQLite(t)

	t.Run("Save and Load Record", func(t *testing.T) {
		if err := store.Save(testRecord(t, "p1", 10)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		record, err := store.Load("p1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if record.Revision != 10 || record.Economy != "default" {
			t.Errorf("Unexpected record %+v", record)
		}
		if !record.CreatedAt.Equal(testEpoch) {
			t.Errorf("Expected created at epoch, got %v", record.CreatedAt)
		}
		if snapshotPoints(t, record) != 10 {
			t.Error("Expected 10 points in snapshot")
		}
	})

	t.Run("Stale Revision Is Ignored", func(t *testing.T) {
		store.Save(testRecord(t, "p1", 20))
		store.Save(testRecord(t, "p1", 15))

		record, _ := store.Load("p1")
		if record.Revision != 20 || snapshotPoints(t, record) != 20 {
			t.Errorf("Expected revision 20 to survive, got %d", record.Revision)
		}
	})

	t.Run("List and Delete", func(t *testing.T) {
		store.Save(testRecord(t, "p2", 1))
		ids, err := store.ListAll()
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != "p1" || ids[1] != "p2" {
			t.Errorf("Expected [p1 p2], got %v", ids)
		}

		if err := store.Delete("p2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if store.Exists("p2") {
			t.Error("Expected p2 deleted")
		}
		if err := store.Delete("p2"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if _, err := store.Load("p2"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Open Requires Path", func(t *testing.T) {
		if _, err := OpenSQLite("  "); err == nil {
			t.Error("Expected error for empty path")
		}
	})
}
