package localfs

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ruotalab/wheelstudio/internal/domain"
)

func TestSaveOpenRemove(t *testing.T) {
	s := New(t.TempDir())

	stored, err := s.Save("my texture.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(stored, "-my_texture.png") {
		t.Errorf("stored name %q not sanitized", stored)
	}
	if got := s.URL(stored); got != "/uploads/"+stored {
		t.Errorf("url = %q", got)
	}

	r, err := s.Open(stored)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(r)
	r.Close()
	if string(data) != "png-bytes" {
		t.Errorf("content %q", data)
	}

	if err := s.Remove(stored); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open(stored); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("open after remove: %v", err)
	}
	// removing a missing file is not an error
	if err := s.Remove(stored); err != nil {
		t.Errorf("second remove: %v", err)
	}
}

func TestOpenRejectsPathTraversal(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Open("../../etc/passwd"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("traversal open: %v", err)
	}
}

func TestSaveUniqueNames(t *testing.T) {
	s := New(t.TempDir())
	a, err := s.Save("a.png", strings.NewReader("1"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Save("a.png", strings.NewReader("2"))
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("same upload name collided")
	}
}
