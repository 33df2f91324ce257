package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glintlab/screenshot-finisher/core"
)

func TestLocal_PutGetRoundTrip(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}

	key := core.StorageKey{Bucket: "2026/08", Path: "capture.png"}
	payload := []byte("artifact bytes")
	if err := store.Put(context.Background(), key, bytes.NewReader(payload), map[string]string{"width": "800"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rc, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("round trip: got %q", got)
	}

	ok, err := store.Exists(context.Background(), key)
	if err != nil || !ok {
		t.Errorf("Exists: got %t, %v", ok, err)
	}
}

func TestLocal_PutWritesSidecarMeta(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, 0)
	if err != nil {
		t.Fatal(err)
	}

	key := core.StorageKey{Bucket: "b", Path: "a.png"}
	if err := store.Put(context.Background(), key, bytes.NewReader([]byte("x")), map[string]string{"height": "600"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	meta, err := os.ReadFile(filepath.Join(dir, "b", "a.png.meta.json"))
	if err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	if !bytes.Contains(meta, []byte(`"height":"600"`)) {
		t.Errorf("sidecar content: %s", meta)
	}
}

func TestLocal_Delete(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	key := core.StorageKey{Bucket: "b", Path: "a.png"}
	if err := store.Put(context.Background(), key, bytes.NewReader([]byte("x")), nil); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(context.Background(), key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err := store.Exists(context.Background(), key)
	if err != nil || ok {
		t.Errorf("after delete: got %t, %v", ok, err)
	}
	// Deleting a missing key is not an error.
	if err := store.Delete(context.Background(), key); err != nil {
		t.Errorf("double delete: %v", err)
	}
}

func TestLocal_GetMissingKey(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), core.StorageKey{Bucket: "b", Path: "nope.png"}); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestPutArtifact_RecordsDimensions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, 0)
	if err != nil {
		t.Fatal(err)
	}

	res := &core.FinishResult{
		Artifact:       []byte("png"),
		Width:          1000,
		Height:         800,
		ProcessingTime: 125 * time.Millisecond,
	}
	key := ArtifactKey("board-capture.png", time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC))
	if err := store.PutArtifact(context.Background(), key, res); err != nil {
		t.Fatalf("PutArtifact: %v", err)
	}

	if key.Bucket != "2026/08" {
		t.Errorf("bucket: got %q", key.Bucket)
	}
	meta, err := os.ReadFile(filepath.Join(dir, key.Bucket, key.Path+".meta.json"))
	if err != nil {
		t.Fatalf("sidecar: %v", err)
	}
	for _, want := range []string{`"width":"1000"`, `"height":"800"`} {
		if !bytes.Contains(meta, []byte(want)) {
			t.Errorf("sidecar missing %s: %s", want, meta)
		}
	}
}
