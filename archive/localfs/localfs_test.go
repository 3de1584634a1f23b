package localfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dytallix.io/pqcwallet/archive"
	"dytallix.io/pqcwallet/archive/archivetest"
)

func TestConformance(t *testing.T) {
	archivetest.RunStoreConformance(t, func(t *testing.T) archive.Store {
		s, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return s
	})
}

func TestNew_RequiresRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestGet_DetectsDiskCorruption(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	id, err := s.Put([]byte("original bytes"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	name := id.String()
	path := filepath.Join(root, name[len(name)-2:], name)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	if err := os.WriteFile(path, []byte("corrupted bytes"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := s.Get(id); !errors.Is(err, archive.ErrCIDMismatch) {
		t.Fatalf("expected ErrCIDMismatch, got %v", err)
	}
}

func TestPut_PublishesReadOnlyUnderTailShard(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	id, err := s.Put([]byte("sharded"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	name := id.String()
	info, err := os.Stat(filepath.Join(root, name[len(name)-2:], name))
	if err != nil {
		t.Fatalf("object not under tail shard: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o444 {
		t.Fatalf("object mode %o, want 0444", perm)
	}

	// Abandoned temp files from interrupted writes must stay invisible.
	stale := filepath.Join(root, name[len(name)-2:], ".ingest-stale")
	if err := os.WriteFile(stale, []byte("partial"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "sharded" {
		t.Fatalf("Get: got %q", got)
	}
}

func TestPut_SurvivesRestart(t *testing.T) {
	root := t.TempDir()
	s1, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	id, err := s1.Put([]byte("durable"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	s2, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !s2.Has(id) {
		t.Fatalf("object lost across reopen")
	}
	b, err := s2.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(b) != "durable" {
		t.Fatalf("Get: got %q", b)
	}
}
