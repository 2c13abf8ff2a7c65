package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ruotalab/wheelstudio/internal/domain"
)

type PriceRow struct {
	Code      string `gorm:"primaryKey;size:60"`
	Cents     int64  `gorm:"not null;default:0"`
	VariantID string `gorm:"size:40"`
	UpdatedAt time.Time
}

func (PriceRow) TableName() string { return "catalog_prices" }

type PaletteRow struct {
	Position int    `gorm:"primaryKey"`
	Name     string `gorm:"size:60"`
	Hex      string `gorm:"size:20"`
}

func (PaletteRow) TableName() string { return "catalog_palette" }

type FinishRow struct {
	Name      string `gorm:"primaryKey;size:30"`
	Roughness float64
	Metallic  float64
}

func (FinishRow) TableName() string { return "catalog_finishes" }

type CatalogRepo struct{ db *gorm.DB }

func NewCatalogRepo(db *gorm.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// MigrateAndSeed creates the catalog tables and inserts any missing rows
// from the defaults. Existing rows are left alone so admin price edits
// survive restarts.
func (r *CatalogRepo) MigrateAndSeed(ctx context.Context, defaults *domain.Catalog) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&PriceRow{}, &PaletteRow{}, &FinishRow{}); err != nil {
		return err
	}
	for _, code := range domain.OptionCodes() {
		id, _ := defaults.VariantID(code)
		row := PriceRow{Code: string(code), Cents: int64(defaults.Price(code)), VariantID: id}
		if err := r.db.WithContext(ctx).Where("code = ?", row.Code).FirstOrCreate(&row).Error; err != nil {
			return err
		}
	}
	for i, p := range defaults.Palette {
		row := PaletteRow{Position: i, Name: p.Name, Hex: p.Hex}
		if err := r.db.WithContext(ctx).Where("position = ?", i).FirstOrCreate(&row).Error; err != nil {
			return err
		}
	}
	for _, f := range domain.Finishes() {
		p := defaults.FinishParams(f)
		row := FinishRow{Name: string(f), Roughness: p.Roughness, Metallic: p.Metallic}
		if err := r.db.WithContext(ctx).Where("name = ?", row.Name).FirstOrCreate(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *CatalogRepo) Load(ctx context.Context) (*domain.Catalog, error) {
	var prices []PriceRow
	if err := r.db.WithContext(ctx).Order("code asc").Find(&prices).Error; err != nil {
		return nil, err
	}
	var palette []PaletteRow
	if err := r.db.WithContext(ctx).Order("position asc").Find(&palette).Error; err != nil {
		return nil, err
	}
	var finishes []FinishRow
	if err := r.db.WithContext(ctx).Find(&finishes).Error; err != nil {
		return nil, err
	}

	cat := &domain.Catalog{
		Prices:     map[domain.OptionCode]domain.Cents{},
		VariantIDs: map[domain.OptionCode]string{},
		Finishes:   map[domain.Finish]domain.FinishParams{},
	}
	for _, p := range prices {
		code := domain.OptionCode(p.Code)
		cat.Prices[code] = domain.Cents(p.Cents)
		if p.VariantID != "" {
			cat.VariantIDs[code] = p.VariantID
		}
	}
	for _, p := range palette {
		cat.Palette = append(cat.Palette, domain.PaletteColor{Name: p.Name, Hex: p.Hex})
	}
	for _, f := range finishes {
		cat.Finishes[domain.Finish(f.Name)] = domain.FinishParams{Roughness: f.Roughness, Metallic: f.Metallic}
	}
	return cat, nil
}

func (r *CatalogRepo) SavePrice(ctx context.Context, code domain.OptionCode, price domain.Cents) error {
	res := r.db.WithContext(ctx).Model(&PriceRow{}).Where("code = ?", string(code)).Update("cents", int64(price))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.CatalogRepo = (*CatalogRepo)(nil)
