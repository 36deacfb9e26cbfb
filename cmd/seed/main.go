// Command seed loads a YAML catalog fixture into Firestore.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/shutterbay/api/internal/platform/config"
	pfirestore "github.com/shutterbay/api/internal/platform/firestore"
	"github.com/shutterbay/api/internal/platform/observability"
	"github.com/shutterbay/api/internal/platform/secrets"
	firestoreRepo "github.com/shutterbay/api/internal/repositories/firestore"
)

func main() {
	var path string
	flag.StringVar(&path, "file", "catalog.yaml", "catalog fixture to load")
	flag.Parse()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("seed")

	if err := run(context.Background(), logger, path); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger, path string) error {
	file, err := loadCatalogFile(path)
	if err != nil {
		return err
	}

	resolver, err := secrets.NewResolver(ctx,
		config.Lookup("API_FIREBASE_PROJECT_ID"),
		config.Lookup("API_SECURITY_ENVIRONMENT"),
		secrets.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("secret resolver: %w", err)
	}
	defer func() {
		_ = resolver.Close()
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(resolver.ResolveSecret)))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	provider := pfirestore.NewProvider(cfg.Firestore)
	registry, err := firestoreRepo.NewRegistry(provider)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	summary, err := seedCatalog(ctx, catalogTargets{
		Brands:     registry.Brands(),
		Categories: registry.Categories(),
		Products:   registry.Products(),
	}, file, cfg.Shop.Currency, time.Now().UTC())
	if err != nil {
		return err
	}

	logger.Info("catalog seeded",
		zap.String("file", path),
		zap.Int("brands", summary.Brands),
		zap.Int("categories", summary.Categories),
		zap.Int("productsCreated", summary.ProductsCreated),
		zap.Int("productsUpdated", summary.ProductsUpdated),
	)
	return nil
}
