package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"podstudio/internal/infra"
)

func TestFileStorePutURLDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	key, err := store.Put(context.Background(), "/artifacts/2026/10/16/a b.png", []byte("png"), "image/png")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key != "artifacts/2026/10/16/a b.png" {
		t.Fatalf("unexpected key %q", key)
	}
	data, err := os.ReadFile(filepath.Join(dir, "artifacts", "2026", "10", "16", "a b.png"))
	if err != nil || string(data) != "png" {
		t.Fatalf("file not written: %v %q", err, data)
	}
	if got := store.URL(key); got != "http://localhost:8080/static/artifacts/2026/10/16/a%20b.png" {
		t.Fatalf("unexpected url %q", got)
	}

	if err := store.Delete(context.Background(), key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(context.Background(), key); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	cases := []string{"", "  ", "../etc/passwd", "a/../../b", ".."}
	for _, key := range cases {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
}

func TestS3StoreURL(t *testing.T) {
	store, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "pod-art", Region: "eu-central-1"})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if got := store.URL("artifacts/x.png"); got != "https://pod-art.s3.eu-central-1.amazonaws.com/artifacts/x.png" {
		t.Fatalf("unexpected url %q", got)
	}

	withBase, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "pod-art", PublicBaseURL: "https://cdn.example/"})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if got := withBase.URL("/artifacts/x.png"); got != "https://cdn.example/artifacts/x.png" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestNewS3StoreValidates(t *testing.T) {
	if _, err := NewS3Store(S3Config{Endpoint: "localhost:9000", Bucket: "b"}); err == nil {
		t.Fatal("expected missing credentials error")
	}
}

func TestNewSelectsDriver(t *testing.T) {
	store, err := New(&infra.Config{StorageDriver: "file", StoragePath: t.TempDir(), StorageBaseURL: "http://x"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := store.(*FileStore); !ok {
		t.Fatalf("expected *FileStore, got %T", store)
	}
	if _, err := New(&infra.Config{StorageDriver: "ftp"}); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}
