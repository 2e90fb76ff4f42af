package core

import (
	"context"
	"log"
	"os"
	"strings"
)

// BootstrapCatalog seeds the movie catalog from cfg.CatalogSeedPath when
// the movies table is empty. It is idempotent: a non-empty catalog or an
// unset path means it does nothing.
func BootstrapCatalog(ctx context.Context, movies MovieRepository, cache *CatalogCache, cfg Config) error {
	if cfg.CatalogSeedPath == "" {
		return nil
	}

	count, err := movies.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	data, err := os.ReadFile(cfg.CatalogSeedPath)
	if err != nil {
		return err
	}

	var seed []Movie
	if strings.HasSuffix(cfg.CatalogSeedPath, ".zip") {
		seed, err = ParseCatalogArchive(data)
	} else {
		seed, err = ParseCatalogYAML(data)
	}
	if err != nil {
		return err
	}

	inserted, err := movies.CreateBatch(ctx, seed)
	if err != nil {
		return err
	}
	cache.Invalidate(ctx)
	log.Printf("catalog bootstrap: imported %d movies from %s", inserted, cfg.CatalogSeedPath)
	return nil
}
