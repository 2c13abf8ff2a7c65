package localfs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ruotalab/wheelstudio/internal/domain"
)

// Storage keeps uploaded texture images on the local filesystem, served
// under /uploads/.
type Storage struct{ dir string }

func New(dir string) *Storage { return &Storage{dir: dir} }

func (s *Storage) Save(name string, r io.Reader) (string, error) {
	base := sanitize(name)
	stored := uuid.New().String()[:8] + "-" + base
	f, err := os.Create(filepath.Join(s.dir, stored))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return stored, nil
}

func (s *Storage) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(path)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	return f, err
}

func (s *Storage) Remove(path string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(path)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Storage) URL(path string) string {
	return "/uploads/" + filepath.Base(path)
}

func sanitize(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.ReplaceAll(base, " ", "_")
	if base == "" || base == "." {
		base = "texture"
	}
	return base
}

var _ domain.FileStorage = (*Storage)(nil)
