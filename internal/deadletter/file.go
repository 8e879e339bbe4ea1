package deadletter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// scanBufferSize bounds one jsonl line; chat payloads with long transcripts
// can run well past bufio's 64K default.
const scanBufferSize = 4 * 1024 * 1024

// FileStore is a jsonl-file-backed Store. One mutex linearizes all
// operations; a missing file means an empty store everywhere.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Append(_ context.Context, entry *Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal dead letter entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open dead letter file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append dead letter entry: %w", err)
	}
	return nil
}

func (s *FileStore) ReadAll(_ context.Context) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []*Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufferSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			// A partially written line must not abort recovery of the rest.
			continue
		}
		entries = append(entries, &e)
	}
	if err := scanner.Err(); err != nil {
		return entries, err
	}
	return entries, nil
}

func (s *FileStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked()
}

func (s *FileStore) countLocked() (int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufferSize)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && json.Valid([]byte(line)) {
			n++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return n, nil
}

// Clear renames the live file to a timestamped archive; the rename itself is
// the reset. Concurrent appends serialize on the mutex, so they land either
// fully in the archive or in the fresh log.
func (s *FileStore) Clear(_ context.Context) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.countLocked()
	if err != nil {
		return "", 0, err
	}
	if n == 0 {
		return "", 0, nil
	}

	ts := time.Now().UTC().Format("20060102_150405")
	ext := filepath.Ext(s.path)
	base := strings.TrimSuffix(s.path, ext) + "_archive_" + ts
	archive := base + ext
	// Two clears in the same second must not clobber an earlier archive.
	for i := 2; ; i++ {
		if _, err := os.Stat(archive); os.IsNotExist(err) {
			break
		}
		archive = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
	if err := os.Rename(s.path, archive); err != nil {
		return "", 0, fmt.Errorf("archive dead letter file: %w", err)
	}
	return archive, n, nil
}
