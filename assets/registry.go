// Package assets implements the background asset registry collaborator: the
// mapping between stable asset ids and loadable background resources.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/glintlab/screenshot-finisher/errors"
)

// BuiltinGradientRef is the reserved reference for the procedurally generated
// default background.  The background resolver special-cases it.
const BuiltinGradientRef = "builtin:gradient"

// DataURLPrefix marks inline backgrounds carried as data URLs.
const DataURLPrefix = "data:"

// DirRegistry catalogues background images found in a directory.  Asset ids
// are the file names without extension; raw paths and data URLs pass through
// untouched.  Safe for concurrent use.
type DirRegistry struct {
	mu      sync.RWMutex
	root    string
	byID    map[string]string // id → absolute path
	byPath  map[string]string // absolute path → id
	defID   string
}

// NewDirRegistry scans root for image files and builds the id↔path mapping.
// A missing or empty directory is not an error: the registry then only serves
// the built-in default.
func NewDirRegistry(root string) *DirRegistry {
	r := &DirRegistry{
		root:   root,
		byID:   make(map[string]string),
		byPath: make(map[string]string),
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return r
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".png", ".jpg", ".jpeg", ".webp":
		default:
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		abs := filepath.Join(root, name)
		r.byID[id] = abs
		r.byPath[abs] = id
	}
	return r
}

// SetDefault marks an asset id as the preferred fallback background.  When
// unset (or the id is unknown), the built-in gradient is used.
func (r *DirRegistry) SetDefault(id string) {
	r.mu.Lock()
	r.defID = id
	r.mu.Unlock()
}

// ResolveBackgroundPath maps ref to a concrete loadable location.
func (r *DirRegistry) ResolveBackgroundPath(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", apperrors.New(apperrors.CategoryBackground, "assets.resolve", apperrors.ErrUnknownAsset)
	}
	// Inline and builtin references need no lookup.
	if strings.HasPrefix(ref, DataURLPrefix) || strings.HasPrefix(ref, "builtin:") {
		return ref, nil
	}

	r.mu.RLock()
	path, ok := r.byID[ref]
	r.mu.RUnlock()
	if ok {
		return path, nil
	}

	// Raw path references survive as long as the file still exists.
	if _, err := os.Stat(ref); err == nil {
		return ref, nil
	}
	return "", apperrors.New(apperrors.CategoryBackground, "assets.resolve",
		fmt.Errorf("%w: %q", apperrors.ErrUnknownAsset, ref))
}

// DefaultBackgroundPath returns the built-in fallback background location.
func (r *DirRegistry) DefaultBackgroundPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defID != "" {
		if path, ok := r.byID[r.defID]; ok {
			return path
		}
	}
	return BuiltinGradientRef
}

// AssetID returns the id for a previously resolved path.  Host UI code uses
// this inverse mapping; the pipeline itself does not.
func (r *DirRegistry) AssetID(path string) (string, bool) {
	r.mu.RLock()
	id, ok := r.byPath[path]
	r.mu.RUnlock()
	return id, ok
}
