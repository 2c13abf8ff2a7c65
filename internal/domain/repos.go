package domain

import (
	"context"
	"io"
)

type CatalogRepo interface {
	Load(ctx context.Context) (*Catalog, error)
	SavePrice(ctx context.Context, code OptionCode, price Cents) error
}

// FileStorage keeps uploaded texture images. Save returns the stored path
// used in TextureRef.
type FileStorage interface {
	Save(name string, r io.Reader) (string, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
	URL(path string) string
}
