package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"cinedolly/internal/storage"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	return NewLibrary(store, "/v1/media")
}

func TestPutOpenRelease(t *testing.T) {
	lib := newTestLibrary(t)
	h, err := lib.Put(context.Background(), []byte("VIDEODATA"), "video/mp4")
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if !strings.HasPrefix(h.URL, "/v1/media/") || h.Size != 9 || h.MIMEType != "video/mp4" {
		t.Fatalf("unexpected handle: %+v", h)
	}

	f, got, err := lib.Open(h.ID)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	data, _ := io.ReadAll(f)
	_ = f.Close()
	if string(data) != "VIDEODATA" || got.ID != h.ID {
		t.Fatalf("unexpected content %q", data)
	}

	if err := lib.Release(h.ID); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if err := lib.Release(h.ID); err != nil {
		t.Fatalf("second Release should be a no-op, got %v", err)
	}
	if _, _, err := lib.Open(h.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after release, got %v", err)
	}
	if lib.Len() != 0 {
		t.Fatalf("expected no live handles, got %d", lib.Len())
	}
}

func TestPutRejectsEmpty(t *testing.T) {
	if _, err := newTestLibrary(t).Put(context.Background(), nil, "video/mp4"); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestReleaseAll(t *testing.T) {
	lib := newTestLibrary(t)
	for i := 0; i < 3; i++ {
		if _, err := lib.Put(context.Background(), []byte("v"), "video/webm"); err != nil {
			t.Fatalf("Put error: %v", err)
		}
	}
	if err := lib.ReleaseAll(); err != nil {
		t.Fatalf("ReleaseAll error: %v", err)
	}
	if lib.Len() != 0 {
		t.Fatalf("expected no live handles, got %d", lib.Len())
	}
}

func TestExtensionFor(t *testing.T) {
	tests := map[string]string{
		"":                ".mp4",
		"video/mp4":       ".mp4",
		"video/webm":      ".webm",
		"video/quicktime": ".mov",
		"x-unknown/none":  ".bin",
	}
	for in, want := range tests {
		if got := extensionFor(in); got != want {
			t.Fatalf("extensionFor(%q) = %q, want %q", in, got, want)
		}
	}
}
