// Package transcript keeps one append-only text file per pair.
package transcript

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// Ext is the file extension of transcript files.
const Ext = ".txt"

var errInvalidKey = errors.New("invalid transcript key")

// Store reads and appends transcripts under a single directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the transcript directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file backing key.
func (s *Store) Path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: %q", errInvalidKey, key)
	}
	return filepath.Join(s.dir, key+Ext), nil
}

// Append writes one full line with a single write call. Concurrent appends
// from this process are serialized; O_APPEND keeps lines from other
// processes intact.
func (s *Store) Append(key string, line domain.TranscriptLine) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	data := []byte(strings.ReplaceAll(line.String(), "\n", " ") + "\n")

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return domain.NewStorageError("open transcript", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return domain.NewStorageError("append transcript", err)
	}
	return domain.NewStorageError("close transcript", f.Close())
}

// Lines returns the stored lines. An absent file is an empty transcript.
func (s *Store) Lines(key string) ([]string, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("open transcript", err)
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if text := strings.TrimRight(scanner.Text(), "\r"); text != "" {
			lines = append(lines, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.NewStorageError("read transcript", err)
	}
	return lines, nil
}

// CharCount is the number of characters in the transcript file.
func (s *Store) CharCount(key string) (int, error) {
	path, err := s.Path(key)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, domain.NewStorageError("read transcript", err)
	}
	return utf8.RuneCount(data), nil
}

// Delete removes the transcript. Deleting an absent transcript is not an error.
func (s *Store) Delete(key string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.NewStorageError("delete transcript", err)
	}
	return nil
}

// Keys lists the keys of all stored transcripts, sorted.
func (s *Store) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, domain.NewStorageError("list transcripts", err)
	}
	keys := []string{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Ext {
			continue
		}
		keys = append(keys, KeyOf(e.Name()))
	}
	sort.Strings(keys)
	return keys, nil
}

// KeyOf returns the key for a transcript file name or path.
func KeyOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), Ext)
}
