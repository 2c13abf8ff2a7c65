package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/ruotalab/wheelstudio/internal/domain"
)

type fakeCatalogRepo struct {
	saved map[domain.OptionCode]domain.Cents
}

func (r *fakeCatalogRepo) Load(ctx context.Context) (*domain.Catalog, error) {
	cat := domain.DefaultCatalog()
	for code, price := range r.saved {
		cat.Prices[code] = price
	}
	return cat, nil
}

func (r *fakeCatalogRepo) SavePrice(ctx context.Context, code domain.OptionCode, price domain.Cents) error {
	if r.saved == nil {
		r.saved = map[domain.OptionCode]domain.Cents{}
	}
	r.saved[code] = price
	return nil
}

func TestCurrentFallsBackToDefaults(t *testing.T) {
	uc := &CatalogUC{}
	cat := uc.Current()
	if cat == nil || cat.Price(domain.CodeKitChannelHalf) != 4700 {
		t.Fatalf("fallback catalog: %+v", cat)
	}
}

func TestUpdatePriceValidatesAndReloads(t *testing.T) {
	uc := &CatalogUC{Repo: &fakeCatalogRepo{}}
	ctx := context.Background()

	if err := uc.UpdatePrice(ctx, domain.CodeKitSpokes, -1); err == nil {
		t.Error("negative price accepted")
	}
	if err := uc.UpdatePrice(ctx, "kit-sidecar", 100); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown code: %v", err)
	}

	if err := uc.UpdatePrice(ctx, domain.CodeKitSpokes, 1990); err != nil {
		t.Fatal(err)
	}
	if got := uc.Current().Price(domain.CodeKitSpokes); got != 1990 {
		t.Errorf("price after update = %s, want 19.90", got)
	}
}
