package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func backends(t *testing.T) map[string]Storage {
	t.Helper()

	dir := t.TempDir()

	file, err := NewFile(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	db, err := NewSQLite(filepath.Join(dir, "data", "reports.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]Storage{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": db,
	}
}

func TestStorageContract(t *testing.T) {
	for name, s := range backends(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get("consolidatedReports"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get on empty store: err = %v, want ErrNotFound", err)
			}

			if err := s.Set("consolidatedReports", []byte(`{"a":[]}`)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			got, err := s.Get("consolidatedReports")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(got) != `{"a":[]}` {
				t.Fatalf("Get = %s", got)
			}

			if err := s.Set("consolidatedReports", []byte(`{}`)); err != nil {
				t.Fatalf("second Set failed: %v", err)
			}
			got, _ = s.Get("consolidatedReports")
			if string(got) != `{}` {
				t.Fatalf("value not replaced: %s", got)
			}

			if err := s.Remove("consolidatedReports"); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			if _, err := s.Get("consolidatedReports"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get after Remove: err = %v", err)
			}
			if err := s.Remove("consolidatedReports"); err != nil {
				t.Fatalf("Remove of missing key: %v", err)
			}
		})
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory()
	value := []byte("abc")
	m.Set("k", value)
	value[0] = 'X'

	got, _ := m.Get("k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %s", got)
	}
	got[1] = 'Y'
	again, _ := m.Get("k")
	if string(again) != "abc" {
		t.Fatalf("returned value aliased stored slice: %s", again)
	}
}

func TestFileRejectsPathKeys(t *testing.T) {
	f, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Set("../escape", []byte("x")); err == nil {
		t.Fatal("expected error for key with path separators")
	}
}

func TestFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f, _ := NewFile(dir)
	for i := 0; i < 3; i++ {
		if err := f.Set("blob", []byte("v")); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "blob.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("directory entries = %v, want [blob.json]", names)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.db")

	db, err := NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Set("k", []byte("persisted")); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	got, err := db.Get("k")
	if err != nil || string(got) != "persisted" {
		t.Fatalf("Get after reopen = %q, %v", got, err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		backend string
		path    string
		wantErr bool
	}{
		{"memory", "", false},
		{"file", filepath.Join(dir, "f"), false},
		{"", filepath.Join(dir, "default"), false},
		{"sqlite", filepath.Join(dir, "s.db"), false},
		{"redis", "", true},
		{"file", "", true},
	}
	for _, tt := range tests {
		s, err := Open(tt.backend, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("Open(%q, %q) err = %v, wantErr %v", tt.backend, tt.path, err, tt.wantErr)
			continue
		}
		if s != nil {
			s.Close()
		}
	}
}
