// Package seed imports route definition files into the route store and
// keeps the store in sync with a watched seed directory.
package seed

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/starford/byahe/internal/ledger"
	"github.com/starford/byahe/internal/models"
	"github.com/starford/byahe/internal/routestore"
)

// Importer loads route JSON files from a seed directory into the store.
// A file may hold a single route object or an array of routes, in any of
// the accepted loose shapes. Files are tracked by content digest so an
// unchanged file is never re-imported.
type Importer struct {
	store  *routestore.Store
	root   string
	logger *slog.Logger

	mu      sync.Mutex
	digests map[string]string
}

// NewImporter creates an importer rooted at dir.
func NewImporter(store *routestore.Store, dir string, logger *slog.Logger) *Importer {
	return &Importer{
		store:   store,
		root:    dir,
		logger:  logger,
		digests: make(map[string]string),
	}
}

// Sync walks the seed directory and imports every new or changed .json
// file. Seed files only ever add or update routes: deleting a seed file
// does not remove routes already stored.
func (im *Importer) Sync() error {
	return filepath.WalkDir(im.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		im.importFile(path)
		return nil
	})
}

// importFile reads one seed file and upserts its routes. Parse or store
// errors are logged and skipped so one bad file cannot block the rest.
func (im *Importer) importFile(path string) {
	rel, err := filepath.Rel(im.root, path)
	if err != nil {
		rel = path
	}

	data, err := os.ReadFile(path)
	if err != nil {
		im.logger.Warn("seed: read failed", slog.String("file", rel), slog.String("error", err.Error()))
		return
	}

	digest := sha256.Sum256(data)
	sum := hex.EncodeToString(digest[:])
	im.mu.Lock()
	unchanged := im.digests[rel] == sum
	im.mu.Unlock()
	if unchanged {
		return
	}

	routes, err := parseSeed(data)
	if err != nil {
		im.logger.Warn("seed: parse failed", slog.String("file", rel), slog.String("error", err.Error()))
		return
	}

	imported := 0
	for _, route := range routes {
		if route.ID == "" {
			im.logger.Warn("seed: skipping route without id", slog.String("file", rel), slog.String("name", route.Name))
			continue
		}
		if _, err := im.store.UpsertRoute(route); err != nil {
			im.logger.Warn("seed: upsert failed", slog.String("file", rel), slog.String("route", route.ID), slog.String("error", err.Error()))
			continue
		}
		imported++
	}

	im.mu.Lock()
	im.digests[rel] = sum
	im.mu.Unlock()
	im.logger.Info("seed: imported", slog.String("file", rel), slog.Int("routes", imported))
}

// parseSeed accepts either a single route object or an array of routes.
func parseSeed(data []byte) ([]models.Route, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return ledger.ParseRoutes(data)
	}
	route, err := ledger.ParseRoute(data)
	if err != nil {
		return nil, err
	}
	return []models.Route{route}, nil
}
