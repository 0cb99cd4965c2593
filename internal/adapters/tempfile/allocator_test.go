package tempfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAllocateUsesFirstDirWithRoom(t *testing.T) {
	small := t.TempDir()
	big := t.TempDir()
	a := &Allocator{freeSpace: func(dir string) (int64, error) {
		if dir == small {
			return 10, nil
		}
		return 1 << 40, nil
	}}

	f, err := a.Allocate([]string{small, big}, "spillq.", ".tmp", 1<<20)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	defer f.Close()

	if filepath.Dir(f.Name()) != big {
		t.Fatalf("expected segment in %s, got %s", big, f.Name())
	}
	base := filepath.Base(f.Name())
	if !strings.HasPrefix(base, "spillq.") || !strings.HasSuffix(base, ".tmp") {
		t.Fatalf("unexpected segment name %s", base)
	}
}

func TestAllocateFallsBackToMostFreeSpace(t *testing.T) {
	d1 := t.TempDir()
	d2 := t.TempDir()
	a := &Allocator{freeSpace: func(dir string) (int64, error) {
		if dir == d1 {
			return 100, nil
		}
		return 200, nil
	}}

	f, err := a.Allocate([]string{d1, d2}, "p", "s", 1<<30)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	defer f.Close()
	if filepath.Dir(f.Name()) != d2 {
		t.Fatalf("expected fallback to %s, got %s", d2, f.Name())
	}
}

func TestAllocateCreatesMissingDirAndUniqueNames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "scratch")
	a := NewAllocator()

	f1, err := a.Allocate([]string{dir}, "q.", ".tmp", 0)
	if err != nil {
		t.Fatalf("allocate 1: %v", err)
	}
	defer f1.Close()
	f2, err := a.Allocate([]string{dir}, "q.", ".tmp", 0)
	if err != nil {
		t.Fatalf("allocate 2: %v", err)
	}
	defer f2.Close()

	if f1.Name() == f2.Name() {
		t.Fatalf("expected unique names, both %s", f1.Name())
	}
	if _, err := os.Stat(f1.Name()); err != nil {
		t.Fatalf("stat segment: %v", err)
	}
}

func TestAllocateSkipsFailingDirs(t *testing.T) {
	bad := t.TempDir()
	good := t.TempDir()
	a := &Allocator{freeSpace: func(dir string) (int64, error) {
		if dir == bad {
			return 0, errors.New("boom")
		}
		return -1, nil
	}}

	f, err := a.Allocate([]string{bad, good}, "p", "s", 1)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	defer f.Close()
	if filepath.Dir(f.Name()) != good {
		t.Fatalf("expected %s, got %s", good, f.Name())
	}
}

func TestAllocateNoUsableDir(t *testing.T) {
	a := &Allocator{freeSpace: func(string) (int64, error) { return 0, errors.New("statfs failed") }}
	if _, err := a.Allocate([]string{t.TempDir()}, "p", "s", 1); err == nil {
		t.Fatalf("expected error when no directory is usable")
	}
	if _, err := a.Allocate(nil, "p", "s", 1); err == nil {
		t.Fatalf("expected error for empty directory list")
	}
}
