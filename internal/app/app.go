package app

import (
	"context"
	"net/http"
	"os"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/ruotalab/wheelstudio/internal/adapters/commerce/shopify"
	"github.com/ruotalab/wheelstudio/internal/adapters/httpserver"
	"github.com/ruotalab/wheelstudio/internal/adapters/repo/postgres"
	"github.com/ruotalab/wheelstudio/internal/adapters/storage/localfs"
	"github.com/ruotalab/wheelstudio/internal/adapters/viewer/stream"
	"github.com/ruotalab/wheelstudio/internal/domain"
	"github.com/ruotalab/wheelstudio/internal/usecase"
)

type App struct {
	DB           *gorm.DB
	CatalogRepo  *postgres.CatalogRepo
	Catalogs     *usecase.CatalogUC
	Configurator *usecase.ConfiguratorUC
	Storage      domain.FileStorage
	Shop         *shopify.Client
	OAuthConfig  *oauth2.Config
}

func NewApp(db *gorm.DB) (*App, error) {
	catalogRepo := postgres.NewCatalogRepo(db)

	storageDir := os.Getenv("STORAGE_DIR")
	if storageDir == "" {
		storageDir = "uploads"
	}
	_ = os.MkdirAll(storageDir, 0755)
	storage := localfs.New(storageDir)

	shop := shopify.NewClient(os.Getenv("SHOPIFY_STORE_URL"))

	var oauthCfg *oauth2.Config
	googleID := os.Getenv("GOOGLE_CLIENT_ID")
	googleSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if googleID != "" && googleSecret != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     googleID,
			ClientSecret: googleSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	catalogs := &usecase.CatalogUC{Repo: catalogRepo}
	configurator := usecase.NewConfiguratorUC(catalogs, storage,
		func(id uuid.UUID, f domain.Flow) domain.Viewer { return stream.New(storage) })

	return &App{
		DB:           db,
		CatalogRepo:  catalogRepo,
		Catalogs:     catalogs,
		Configurator: configurator,
		Storage:      storage,
		Shop:         shop,
		OAuthConfig:  oauthCfg,
	}, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.Configurator, a.Catalogs, a.Storage, a.Shop, a.OAuthConfig)
}

// MigrateAndSeed creates the catalog tables, inserts any missing reference
// rows and loads the catalog into memory.
func (a *App) MigrateAndSeed(ctx context.Context) error {
	if err := a.CatalogRepo.MigrateAndSeed(ctx, domain.DefaultCatalog()); err != nil {
		return err
	}
	return a.Catalogs.Load(ctx)
}

func (a *App) Close() {
	a.Configurator.Close()
}
