package home

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-formshelf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-formshelf" {
			t.Errorf("expected path /tmp/test-formshelf, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-formshelf")

	if got := dir.ResultsPath(); got != "/tmp/test-formshelf/results" {
		t.Errorf("ResultsPath() = %s", got)
	}
	if got := dir.ConfigPath(); got != "/tmp/test-formshelf/config.yaml" {
		t.Errorf("ConfigPath() = %s", got)
	}
	if got := dir.Stager().Root(); got != dir.ResultsPath() {
		t.Errorf("Stager().Root() = %s", got)
	}
}

func TestDir_EnsureExists(t *testing.T) {
	dir, err := New(filepath.Join(t.TempDir(), "formshelf-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir.Exists() {
		t.Error("directory should not exist yet")
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}
	if _, err := os.Stat(dir.ResultsPath()); err != nil {
		t.Errorf("results directory missing: %v", err)
	}
	if dir.ConfigExists() {
		t.Error("config should not exist")
	}
}

func TestStager(t *testing.T) {
	fixed := time.Date(2024, 3, 18, 9, 30, 5, 0, time.Local)

	t.Run("timestamp directory", func(t *testing.T) {
		s := NewStager(t.TempDir())
		s.now = func() time.Time { return fixed }

		sess, err := s.Create()
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if filepath.Base(sess.Dir) != "20240318093005" {
			t.Errorf("dir = %s", sess.Dir)
		}
	})

	t.Run("collision gets a token and never overwrites", func(t *testing.T) {
		s := NewStager(t.TempDir())
		s.now = func() time.Time { return fixed }

		first, err := s.Create()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := first.Write(ResultJSONName, []byte(`{"a":1}`)); err != nil {
			t.Fatal(err)
		}

		second, err := s.Create()
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if !regexp.MustCompile(`^20240318093005-[0-9a-f]{8}$`).MatchString(filepath.Base(second.Dir)) {
			t.Errorf("second dir = %s", second.Dir)
		}
		data, _ := os.ReadFile(filepath.Join(first.Dir, ResultJSONName))
		if string(data) != `{"a":1}` {
			t.Errorf("first session was modified: %s", data)
		}
	})

	t.Run("write strips directories", func(t *testing.T) {
		s := NewStager(t.TempDir())
		sess, err := s.Create()
		if err != nil {
			t.Fatal(err)
		}
		path, err := sess.Write("../../evil/form.png", []byte("x"))
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if filepath.Dir(path) != sess.Dir || filepath.Base(path) != "form.png" {
			t.Errorf("path = %s", path)
		}
		if _, err := sess.Write("..", nil); !errors.Is(err, ErrStorageWrite) {
			t.Errorf("error = %v, want ErrStorageWrite", err)
		}
	})

	t.Run("unwritable root", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		os.WriteFile(file, []byte("x"), 0o644)

		_, err := NewStager(filepath.Join(file, "results")).Create()
		if !errors.Is(err, ErrStorageWrite) {
			t.Errorf("error = %v, want ErrStorageWrite", err)
		}
	})

	t.Run("latest", func(t *testing.T) {
		s := NewStager(t.TempDir())
		if latest, err := s.Latest(); err != nil || latest != "" {
			t.Errorf("Latest() on empty = %q, %v", latest, err)
		}
		s.now = func() time.Time { return fixed }
		s.Create()
		s.now = func() time.Time { return fixed.Add(time.Minute) }
		want, _ := s.Create()

		if latest, _ := s.Latest(); latest != want.Dir {
			t.Errorf("Latest() = %s, want %s", latest, want.Dir)
		}
	})
}
