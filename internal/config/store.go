package config

import (
	"sync/atomic"
)

// CatalogStore holds the current catalog and swaps it on reload.
// Readers keep the pointer they loaded; a reload never mutates a published catalog.
type CatalogStore struct {
	dir     string
	current atomic.Pointer[Catalog]
	loader  func(dir string) (*Catalog, error)
}

// NewCatalogStore loads the catalog from dir (see LoadCatalog).
func NewCatalogStore(dir string) (*CatalogStore, error) {
	s := &CatalogStore{dir: dir, loader: LoadCatalog}
	cat, err := s.loader(dir)
	if err != nil {
		return nil, err
	}
	s.current.Store(cat)
	return s, nil
}

// NewStaticStore wraps an already loaded catalog. Reload re-reads the embedded defaults.
func NewStaticStore(cat *Catalog) *CatalogStore {
	s := &CatalogStore{loader: func(string) (*Catalog, error) { return DefaultCatalog() }}
	s.current.Store(cat)
	return s
}

// Catalog returns the current catalog.
func (s *CatalogStore) Catalog() *Catalog {
	return s.current.Load()
}

// Reload re-reads the catalog. On error the previous catalog stays active.
func (s *CatalogStore) Reload() (*Catalog, error) {
	cat, err := s.loader(s.dir)
	if err != nil {
		return s.current.Load(), err
	}
	s.current.Store(cat)
	return cat, nil
}
