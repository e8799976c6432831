package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestMedium(t *testing.T, files ...string) *Medium {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	m := New(Config{MountPoint: root})
	if err := m.Mount(); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return m
}

func TestMountMissingDirectory(t *testing.T) {
	m := New(Config{MountPoint: filepath.Join(t.TempDir(), "sd")})
	err := m.Mount()
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Mount() = %v, want ErrUnavailable", err)
	}
	if m.Mounted() {
		t.Error("Mounted() = true after failed mount")
	}
}

func TestMountNoMountPoint(t *testing.T) {
	if err := New(Config{}).Mount(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Mount() = %v, want ErrUnavailable", err)
	}
}

func TestMountIsIdempotent(t *testing.T) {
	m := newTestMedium(t)
	if err := m.Mount(); err != nil {
		t.Errorf("second Mount: %v", err)
	}
	if err := m.Unmount(); err != nil {
		t.Errorf("Unmount: %v", err)
	}
	if m.Mounted() {
		t.Error("Mounted() = true after Unmount")
	}
}

func TestListFiltersExtensions(t *testing.T) {
	m := newTestMedium(t, "cat.jpg", "dog.JPEG", "notes.txt", ".hidden.jpg", "sub/deep.jpg", "icon.png")
	files, err := m.List("", ".jpg", ".jpeg")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("List = %v, want 2 files", files)
	}
	for _, f := range files {
		base := filepath.Base(f)
		if base != "cat.jpg" && base != "dog.JPEG" {
			t.Errorf("unexpected file %s", base)
		}
	}
}

func TestListUnmounted(t *testing.T) {
	m := New(Config{MountPoint: t.TempDir()})
	if _, err := m.List(""); !errors.Is(err, ErrUnavailable) {
		t.Errorf("List before Mount = %v, want ErrUnavailable", err)
	}
}

func TestPickRandom(t *testing.T) {
	m := newTestMedium(t, "a.jpg", "b.jpg", "c.jpg")
	for i := 0; i < 20; i++ {
		p, err := m.PickRandom("", ".jpg")
		if err != nil {
			t.Fatalf("PickRandom: %v", err)
		}
		if !strings.HasSuffix(p, ".jpg") {
			t.Errorf("PickRandom = %s", p)
		}
	}
}

func TestPickRandomEmpty(t *testing.T) {
	m := newTestMedium(t, "readme.txt")
	if _, err := m.PickRandom("", ".jpg"); !errors.Is(err, ErrNoFiles) {
		t.Errorf("PickRandom = %v, want ErrNoFiles", err)
	}
}

func TestPathAndExists(t *testing.T) {
	m := newTestMedium(t, "status/01d.jpg")
	if !m.Exists("status", "01d.jpg") {
		t.Error("Exists(status/01d.jpg) = false")
	}
	if m.Exists("status", "02d.jpg") {
		t.Error("Exists(status/02d.jpg) = true")
	}
	if got := m.Path("xkcd-daily.jpg"); filepath.Base(got) != "xkcd-daily.jpg" {
		t.Errorf("Path = %s", got)
	}
}
