package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadFileScoped_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	b, err := ReadFileScoped(p)
	if err != nil {
		t.Fatalf("ReadFileScoped error: %v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("unexpected content: %q", string(b))
	}
}

func TestReadFileScoped_RejectsInvalidPath(t *testing.T) {
	for _, p := range []string{"", ".", string(filepath.Separator)} {
		if _, err := ReadFileScoped(p); err == nil {
			t.Fatalf("expected error for %q", p)
		}
	}
}


func TestConsumeFile_ReadsAndRemoves(t *testing.T) {
	p := filepath.Join(t.TempDir(), "job.json")
	if err := os.WriteFile(p, []byte(`{"kind":"export"}`), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	b, err := ConsumeFile(p)
	if err != nil {
		t.Fatalf("ConsumeFile: %v", err)
	}
	if string(b) != `{"kind":"export"}` {
		t.Fatalf("unexpected content: %q", b)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}

	if _, err := ConsumeFile(p); err == nil {
		t.Fatal("expected error on second read")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.json")
	if err := WriteFileAtomic(p, []byte("one"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if err := WriteFileAtomic(p, []byte("two"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic overwrite: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "two" {
		t.Fatalf("unexpected content: %q", b)
	}
}

func TestPendingFile_InvisibleUntilCommit(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "export.json")

	pf, err := NewPendingFile(p, 0o644)
	if err != nil {
		t.Fatalf("NewPendingFile: %v", err)
	}
	if _, err := pf.Write([]byte("[]")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("target visible before commit: %v", err)
	}
	if err := pf.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := pf.Cleanup(); err != nil {
		t.Fatalf("Cleanup after commit: %v", err)
	}

	b, err := os.ReadFile(p)
	if err != nil || string(b) != "[]" {
		t.Fatalf("unexpected content %q (%v)", b, err)
	}
}

func TestPendingFile_CleanupDiscards(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "export.json")

	pf, err := NewPendingFile(p, 0o644)
	if err != nil {
		t.Fatalf("NewPendingFile: %v", err)
	}
	_, _ = pf.Write([]byte("[partial"))
	if err := pf.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("leftover files: %v", entries)
	}
}
