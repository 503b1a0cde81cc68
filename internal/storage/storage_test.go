package storage_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sendrec/vidwidget/internal/storage"
)

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.New(context.Background(), storage.Config{
		Endpoint:  "http://localhost:9000",
		Bucket:    "test",
		AccessKey: "test",
		SecretKey: "test",
	})
	if err != nil {
		t.Fatalf("expected no error creating storage client, got: %v", err)
	}
	return s
}

func TestNewStorageRequiresConfig(t *testing.T) {
	newTestStorage(t)
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		src  string
		key  string
		isS3 bool
	}{
		{"s3://videos/intro.mp4", "videos/intro.mp4", true},
		{"s3://", "", false},
		{"https://cdn.example.com/intro.mp4", "", false},
	}
	for _, tt := range tests {
		key, ok := storage.ObjectKey(tt.src)
		if key != tt.key || ok != tt.isS3 {
			t.Errorf("ObjectKey(%q) = %q, %v; want %q, %v", tt.src, key, ok, tt.key, tt.isS3)
		}
	}
}

func TestResolveSource_PresignsObjectSources(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.ResolveSource(context.Background(), "s3://videos/intro.mp4", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "http://localhost:9000/test/videos/intro.mp4?") {
		t.Errorf("unexpected presigned URL %q", got)
	}
	if !strings.Contains(got, "X-Amz-Signature=") {
		t.Errorf("expected signature in %q", got)
	}
}

func TestResolveSource_PassesThroughURLs(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.ResolveSource(context.Background(), "https://cdn.example.com/a.mp4", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://cdn.example.com/a.mp4" {
		t.Errorf("expected URL unchanged, got %q", got)
	}
}
