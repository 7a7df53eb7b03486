// Package paths resolves every on-disk location from a single data root and
// provides the shared write primitives: O_APPEND appends, atomic replace,
// and advisory file locks.
package paths

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/lorehq/lore/internal/config"
)

// Root is a resolved data root. All store paths hang off it.
type Root struct {
	Dir string
}

// Resolve locates the data root. Precedence: explicit override >
// LORE_DATA_ROOT / config data-root > walk-up search for a .lore/
// directory > ~/.lore.
func Resolve(override string) (*Root, error) {
	if override != "" {
		return &Root{Dir: override}, nil
	}
	if fromConfig := config.GetString("data-root"); fromConfig != "" {
		return &Root{Dir: fromConfig}, nil
	}
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			candidate := filepath.Join(dir, ".lore")
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				return &Root{Dir: candidate}, nil
			}
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data root: %w", err)
	}
	return &Root{Dir: filepath.Join(home, ".lore")}, nil
}

// Store file locations beneath the data root.

func (r *Root) JournalFile() string { return filepath.Join(r.Dir, "journal", "data", "decisions.jsonl") }
func (r *Root) JournalIndexDir() string { return filepath.Join(r.Dir, "journal", "data", "index") }
func (r *Root) PatternsFile() string { return filepath.Join(r.Dir, "patterns", "data", "patterns.yaml") }
func (r *Root) FailuresFile() string { return filepath.Join(r.Dir, "failures", "data", "failures.jsonl") }
func (r *Root) InboxFile() string { return filepath.Join(r.Dir, "inbox", "data", "observations.jsonl") }
func (r *Root) GraphFile() string { return filepath.Join(r.Dir, "graph", "data", "graph.json") }
func (r *Root) GoalsDir() string { return filepath.Join(r.Dir, "intent", "data", "goals") }
func (r *Root) SessionsDir() string { return filepath.Join(r.Dir, "transfer", "data", "sessions") }
func (r *Root) CurrentSessionFile() string {
	return filepath.Join(r.Dir, "transfer", "data", ".current_session")
}
func (r *Root) SearchDB() string { return filepath.Join(r.Dir, "search.db") }
func (r *Root) RegistryDir() string { return filepath.Join(r.Dir, "registry", "projects") }
func (r *Root) DaemonLogFile() string { return filepath.Join(r.Dir, "daemon.log") }

// AppendLine appends one record line to path with a single O_APPEND write,
// creating parent directories as needed. The line is LF-terminated by the
// caller's contract; a missing newline is added.
func AppendLine(path string, line []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", path, err)
	}
	defer f.Close()
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic replaces path with data via write-to-temp in the same
// directory plus rename. Readers never observe a half-written file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// WithLock runs fn while holding an exclusive advisory lock on
// <path>.lock. Lock acquisition honors the configured lock-timeout.
func WithLock(path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	timeout := config.GetDuration("lock-timeout")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := time.Now().Add(timeout)
	for {
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquiring lock on %s: %w", path, err)
		}
		if locked {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for lock on %s", path)
		}
		time.Sleep(50 * time.Millisecond)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

// ReadLines streams the complete lines of a JSONL file. A missing file
// yields zero lines. A trailing partial line (no LF, from an interrupted
// append) is discarded; callers additionally skip lines that fail to
// unmarshal.
func ReadLines(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var pending []byte
	for scanner.Scan() {
		if pending != nil {
			if err := fn(pending); err != nil {
				return err
			}
		}
		line := scanner.Bytes()
		pending = make([]byte, len(line))
		copy(pending, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	// The final buffered line is only trusted if the file ends with LF.
	if pending != nil && endsWithNewline(path) {
		if err := fn(pending); err != nil {
			return err
		}
	}
	return nil
}

func endsWithNewline(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return false
	}
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, info.Size()-1); err != nil {
		return false
	}
	return buf[0] == '\n'
}
