package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveOverrideWins(t *testing.T) {
	dir := t.TempDir()
	root, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if root.Dir != dir {
		t.Errorf("Dir = %q, want override %q", root.Dir, dir)
	}
}

func TestStorePathsHangOffRoot(t *testing.T) {
	root := &Root{Dir: "/data/.lore"}
	for _, p := range []string{
		root.JournalFile(),
		root.PatternsFile(),
		root.FailuresFile(),
		root.InboxFile(),
		root.GraphFile(),
		root.GoalsDir(),
		root.SessionsDir(),
		root.SearchDB(),
		root.RegistryDir(),
	} {
		if !filepath.IsAbs(p) || !isWithin(root.Dir, p) {
			t.Errorf("path %q escapes root", p)
		}
	}
}

func isWithin(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !filepath.IsAbs(rel) && rel[0] != '.'
}

func TestAppendLineAddsNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store", "data.jsonl")
	if err := AppendLine(path, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("AppendLine failed: %v", err)
	}
	if err := AppendLine(path, []byte("{\"b\":2}\n")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\"a\":1}\n{\"b\":2}\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store", "state.json")
	if err := WriteFileAtomic(path, []byte("first")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("file = %q, want %q", data, "second")
	}
	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory entries = %d, want only the target file", len(entries))
	}
}

func TestReadLinesDiscardsPartialTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	content := "{\"a\":1}\n{\"b\":2}\n{\"torn\":"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	var lines []string
	err := ReadLines(path, func(line []byte) error {
		lines = append(lines, string(line))
		return nil
	})
	if err != nil {
		t.Fatalf("ReadLines failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %v, want torn tail discarded", lines)
	}
	if lines[1] != `{"b":2}` {
		t.Errorf("last complete line = %q", lines[1])
	}
}

func TestReadLinesCompleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	if err := os.WriteFile(path, []byte("one\ntwo\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := ReadLines(path, func([]byte) error { n++; return nil }); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("lines = %d, want 2", n)
	}
}

func TestReadLinesMissingFile(t *testing.T) {
	err := ReadLines(filepath.Join(t.TempDir(), "nope.jsonl"), func([]byte) error {
		t.Fatal("callback fired for a missing file")
		return nil
	})
	if err != nil {
		t.Errorf("missing file should read as empty, got %v", err)
	}
}

func TestWithLockSerializesAndReleases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store", "data.jsonl")
	var ran bool
	if err := WithLock(path, func() error { ran = true; return nil }); err != nil {
		t.Fatalf("WithLock failed: %v", err)
	}
	if !ran {
		t.Fatal("callback did not run")
	}
	// Reacquirable after release.
	if err := WithLock(path, func() error { return nil }); err != nil {
		t.Errorf("second acquisition failed: %v", err)
	}
	if _, err := os.Stat(path + ".lock"); err != nil {
		t.Errorf("lock file missing: %v", err)
	}
}
