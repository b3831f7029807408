// Package downloads stores fetched attachment bodies on the local
// filesystem under the user's downloads directory.
package downloads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store writes downloaded attachments into a root directory. Name
// collisions are resolved with a " (n)" suffix instead of overwriting.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Save writes the attachment body under name and returns the final
// path. The write is atomic: data lands in a temp file first and is
// renamed into place.
func (s *Store) Save(r io.Reader, name string) (string, error) {
	path, err := s.freePath(filepath.Base(name))
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.root, "download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name()) // Clean up if rename fails
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to rename file: %w", err)
	}
	return path, nil
}

// freePath picks the first unoccupied path for name within root.
func (s *Store) freePath(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	path := filepath.Join(s.root, name)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		} else if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
		path = filepath.Join(s.root, fmt.Sprintf("%s (%d)%s", stem, n, ext))
	}
}
