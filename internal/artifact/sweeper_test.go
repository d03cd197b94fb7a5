package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeDeleter struct {
	deleted []string
}

func (f *fakeDeleter) Delete(id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestSweepOnceRemovesExpiredJobDirs(t *testing.T) {
	base := t.TempDir()
	s := New(base)
	oldDir, _ := s.EnsureDir("old-job")
	freshDir, _ := s.EnsureDir("fresh-job")

	old := time.Now().Add(-48 * time.Hour)
	os.Chtimes(oldDir, old, old)

	deleter := &fakeDeleter{}
	sweeper := NewSweeper(s, deleter, time.Hour, nil)
	sweeper.Now = func() time.Time { return time.Now() }

	sweeper.sweepOnce()

	if len(deleter.deleted) != 1 || deleter.deleted[0] != "old-job" {
		t.Fatalf("expected only old-job deleted, got %v", deleter.deleted)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Fatalf("expected old job directory removed from disk")
	}
	if _, err := os.Stat(freshDir); err != nil {
		t.Fatalf("expected fresh job directory to remain, got %v", err)
	}
}

func TestSweepOnceIgnoresNonDirEntries(t *testing.T) {
	base := t.TempDir()
	s := New(base)
	os.WriteFile(filepath.Join(base, "stray-file.txt"), []byte("x"), 0o644)

	deleter := &fakeDeleter{}
	sweeper := NewSweeper(s, deleter, time.Millisecond, nil)

	sweeper.sweepOnce()

	if len(deleter.deleted) != 0 {
		t.Fatalf("expected no deletions for a stray file, got %v", deleter.deleted)
	}
}
