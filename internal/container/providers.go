package container

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/asset-registry/internal/application/port"
	"github.com/garyjia/asset-registry/internal/auth"
	"github.com/garyjia/asset-registry/internal/infrastructure/catalog"
	"github.com/garyjia/asset-registry/internal/infrastructure/persistence/repository"
	"github.com/garyjia/asset-registry/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/asset-registry/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle holds all repository implementations.
type RepositoryBundle struct {
	Assets     port.AssetRepository
	Ministries port.MinistryRepository
	Audit      port.AuditRepository
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	var applied int
	if cfg.MigrationsDir != "" {
		applied, err = migrator.UpFromDir(cfg.MigrationsDir)
	} else {
		applied, err = migrator.Up()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Migrations applied", zap.Int("count", applied))

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Assets:     repository.NewAssetRepository(sqlDB, logger),
		Ministries: repository.NewMinistryRepository(sqlDB, logger),
		Audit:      repository.NewAuditRepository(sqlDB, logger),
	}, nil
}

// ProvideCatalog loads category definitions.
func ProvideCatalog(cfg *CatalogConfig, logger *zap.Logger) (*catalog.Catalog, error) {
	if cfg == nil {
		return nil, fmt.Errorf("catalog config is required")
	}

	c, err := catalog.Load(cfg.Path)
	if err != nil {
		return nil, err
	}

	source := cfg.Path
	if source == "" {
		source = "built-in"
	}
	logger.Info("Categories loaded", zap.String("source", source), zap.Int("count", len(c.List())))
	return c, nil
}

// ProvideTokenManager creates the bearer token signer and validator.
func ProvideTokenManager(cfg *AuthConfig) (*auth.TokenManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}
	return auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
}
