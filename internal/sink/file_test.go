package sink

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestFileAppendsByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenFile(path, "")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("new\n")); err != nil {
		t.Fatal(err)
	}
	if err := f.Sync(); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, path); got != "old\nnew\n" {
		t.Errorf("content = %q", got)
	}
}

func TestFileTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenFile(path, "truncate")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("new\n")); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, path); got != "new\n" {
		t.Errorf("content = %q", got)
	}

	// Reopen must not truncate again.
	if err := f.Reopen(); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("more\n")); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, path); got != "new\nmore\n" {
		t.Errorf("content after reopen = %q", got)
	}
}

func TestFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perm.log")
	f, err := OpenFile(path, "append,0600")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		t.Errorf("mode = %v, want no group/other bits", info.Mode().Perm())
	}
}

func TestFileReopenAfterRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	f, err := OpenFile(path, "append")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("before\n")); err != nil {
		t.Fatal(err)
	}
	rotated := filepath.Join(dir, "app.log.1")
	if err := os.Rename(path, rotated); err != nil {
		t.Fatal(err)
	}
	if err := f.Reopen(); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("after\n")); err != nil {
		t.Fatal(err)
	}

	if got := readFile(t, rotated); got != "before\n" {
		t.Errorf("rotated = %q", got)
	}
	if got := readFile(t, path); got != "after\n" {
		t.Errorf("fresh = %q", got)
	}
}

func TestFileCloseIdempotent(t *testing.T) {
	f, err := OpenFile(filepath.Join(t.TempDir(), "x.log"), "")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := f.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}
}

func TestFileOpenErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		options  string
		wantCode string
	}{
		{"missing directory", filepath.Join(t.TempDir(), "nope", "x.log"), "", ErrCodeOpenFailed},
		{"bad option", filepath.Join(t.TempDir(), "x.log"), "rotate", ErrCodeInvalidOptions},
		{"bad mode", filepath.Join(t.TempDir(), "x.log"), "0999", ErrCodeInvalidOptions},
		{"param not supported", filepath.Join(t.TempDir(), "x.log"), "level=best", ErrCodeInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenFile(tt.path, tt.options)
			var destErr *DestinationError
			if !errors.As(err, &destErr) {
				t.Fatalf("expected DestinationError, got %v", err)
			}
			if destErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", destErr.Code, tt.wantCode)
			}
		})
	}
}
