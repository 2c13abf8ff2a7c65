package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/ruotalab/wheelstudio/internal/domain"
)

// CatalogUC holds the in-memory catalog and refreshes it after admin edits.
// Reads are lock-free copies of a pointer; the catalog itself is immutable.
type CatalogUC struct {
	Repo domain.CatalogRepo

	mu      sync.RWMutex
	current *domain.Catalog
}

func (uc *CatalogUC) Load(ctx context.Context) error {
	cat, err := uc.Repo.Load(ctx)
	if err != nil {
		return err
	}
	uc.mu.Lock()
	uc.current = cat
	uc.mu.Unlock()
	return nil
}

func (uc *CatalogUC) Current() *domain.Catalog {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	if uc.current == nil {
		return domain.DefaultCatalog()
	}
	return uc.current
}

func (uc *CatalogUC) UpdatePrice(ctx context.Context, code domain.OptionCode, price domain.Cents) error {
	if price < 0 {
		return errors.New("negative price")
	}
	known := false
	for _, c := range domain.OptionCodes() {
		if c == code {
			known = true
			break
		}
	}
	if !known {
		return domain.ErrNotFound
	}
	if err := uc.Repo.SavePrice(ctx, code, price); err != nil {
		return err
	}
	return uc.Load(ctx)
}
