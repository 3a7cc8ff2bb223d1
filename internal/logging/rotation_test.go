package logging

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// smallLimit sets a byte-sized limit so tests don't need megabytes of data.
func smallLimit(rf *RotatingFile, n int64) {
	rf.mu.Lock()
	rf.limit = n
	rf.mu.Unlock()
}

func TestNewRotatingFile_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("previous\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rf, err := NewRotatingFile(path, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingFile failed: %v", err)
	}
	defer rf.Close()

	if rf.Size() != int64(len("previous\n")) {
		t.Errorf("Size() = %d, want %d", rf.Size(), len("previous\n"))
	}
	if rf.Path() != path {
		t.Errorf("Path() = %q, want %q", rf.Path(), path)
	}
}

func TestRotatingFile_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	rf, err := NewRotatingFile(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()
	smallLimit(rf, 10)

	for _, line := range []string{"aaaaaaaa\n", "bbbbbbbb\n", "cccccccc\n", "dddddddd\n"} {
		if _, err := rf.Write([]byte(line)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	assertContent(t, path, "dddddddd\n")
	assertContent(t, path+".1", "cccccccc\n")
	assertContent(t, path+".2", "bbbbbbbb\n")
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("backup beyond MaxBackups should not exist")
	}
}

func TestRotatingFile_NoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	rf, err := NewRotatingFile(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 0})
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()
	smallLimit(rf, 10)

	rf.Write([]byte("aaaaaaaa\n"))
	rf.Write([]byte("bbbbbbbb\n"))

	assertContent(t, path, "bbbbbbbb\n")
	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("no backup should be kept when MaxBackups is 0")
	}
}

func TestRotatingFile_Compress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	rf, err := NewRotatingFile(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 1, Compress: true})
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()
	smallLimit(rf, 10)

	rf.Write([]byte("aaaaaaaa\n"))
	rf.Write([]byte("bbbbbbbb\n"))

	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("uncompressed backup should have been removed")
	}

	f, err := os.Open(path + ".1.gz")
	if err != nil {
		t.Fatalf("compressed backup missing: %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "aaaaaaaa\n" {
		t.Errorf("compressed content = %q", data)
	}
}

func TestRotatingFile_DisabledRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	rf, err := NewRotatingFile(path, RotationConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()

	payload := strings.Repeat("x", 4096)
	for i := 0; i < 4; i++ {
		rf.Write([]byte(payload))
	}
	if rf.Size() != 4*4096 {
		t.Errorf("Size() = %d, want %d", rf.Size(), 4*4096)
	}
}

func TestRotatingFile_Close(t *testing.T) {
	rf, err := NewRotatingFile(filepath.Join(t.TempDir(), "app.log"), DefaultRotationConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := rf.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
	if _, err := rf.Write([]byte("x")); err == nil {
		t.Error("Write after Close should fail")
	}
}

func assertContent(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if string(data) != want {
		t.Errorf("%s = %q, want %q", filepath.Base(path), data, want)
	}
}
