package engine

import (
	"fmt"
	"path/filepath"

	"github.com/gcbaptista/go-help-search/store"
)

const catalogFile = "catalog.gob"

// CatalogPath returns where the catalog of a help set is stored.
func CatalogPath(dataDir string) string {
	return filepath.Join(dataDir, catalogFile)
}

// loadCatalog reads the catalog from the data directory. A missing file
// yields an empty catalog.
func (e *Engine) loadCatalog() (*store.Catalog, error) {
	path := CatalogPath(e.opts.DataDir)
	catalog, err := store.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return catalog, nil
}

// saveCatalog persists the catalog. Callers hold buildMu.
func (e *Engine) saveCatalog() error {
	path := CatalogPath(e.opts.DataDir)
	if err := e.catalog.Save(path); err != nil {
		return fmt.Errorf("failed to save catalog %s: %w", path, err)
	}
	return nil
}
