// Package storage provides StorageAdapter implementations for finished
// artifacts.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/glintlab/screenshot-finisher/core"
	apperrors "github.com/glintlab/screenshot-finisher/errors"
)

// Local stores finished artifacts on the local filesystem.  Writes are atomic:
// the artifact lands under its final name only after the full byte stream has
// been flushed.
type Local struct {
	rootDir     string
	permissions os.FileMode
}

// NewLocal creates a Local storage adapter rooted at dir.
func NewLocal(dir string, perm os.FileMode) (*Local, error) {
	if perm == 0 {
		perm = 0o644
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: mkdir %s: %w", dir, err)
	}
	return &Local{rootDir: dir, permissions: perm}, nil
}

// ArtifactKey derives a dated storage key for a finished screenshot, e.g.
// {Bucket: "2026/08", Path: "board-capture-1756100000.png"}.
func ArtifactKey(name string, now time.Time) core.StorageKey {
	if name == "" {
		name = "screenshot"
	}
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return core.StorageKey{
		Bucket: now.UTC().Format("2006/01"),
		Path:   base + "-" + strconv.FormatInt(now.UTC().Unix(), 10) + ".png",
	}
}

func (l *Local) absPath(key core.StorageKey) string {
	// Bucket maps to a subdirectory; Path is the filename.
	return filepath.Join(l.rootDir, filepath.Clean(key.Bucket), filepath.Clean(key.Path))
}

// PutArtifact persists a pipeline result under key, recording dimensions and
// timing as side-car metadata.
func (l *Local) PutArtifact(ctx context.Context, key core.StorageKey, res *core.FinishResult) error {
	meta := map[string]string{
		"width":         strconv.Itoa(res.Width),
		"height":        strconv.Itoa(res.Height),
		"processing_ms": strconv.FormatInt(res.ProcessingTime.Milliseconds(), 10),
	}
	return l.Put(ctx, key, bytes.NewReader(res.Artifact), meta)
}

func (l *Local) Put(ctx context.Context, key core.StorageKey, r io.Reader, meta map[string]string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put", err)
	}

	path := l.absPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.mkdir", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".finisher-*")
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.tmp", err)
	}
	tmpName := tmp.Name()

	if _, err = io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.copy", err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.close", err)
	}
	if err = os.Chmod(tmpName, l.permissions); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.chmod", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.rename", err)
	}

	// Persist metadata as a side-car JSON file.  Best effort: the artifact is
	// already durable at this point.
	if len(meta) > 0 {
		mf, err := os.OpenFile(path+".meta.json", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, l.permissions)
		if err == nil {
			_ = json.NewEncoder(mf).Encode(meta)
			mf.Close()
		}
	}
	return nil
}

func (l *Local) Get(ctx context.Context, key core.StorageKey) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.get", err)
	}
	f, err := os.Open(l.absPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.New(apperrors.CategoryStorage, "local.get", fmt.Errorf("key not found: %v", key))
		}
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.get.open", err)
	}
	return f, nil
}

func (l *Local) Delete(ctx context.Context, key core.StorageKey) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.delete", err)
	}
	path := l.absPath(key)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.delete", err)
	}
	_ = os.Remove(path + ".meta.json")
	return nil
}

func (l *Local) Exists(ctx context.Context, key core.StorageKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Wrap(apperrors.CategoryStorage, "local.exists", err)
	}
	_, err := os.Stat(l.absPath(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, apperrors.Wrap(apperrors.CategoryStorage, "local.exists.stat", err)
}
