package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStoreWriteAndRead(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(&LocalConfig{Root: t.TempDir(), PublicBase: "/media"})
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	ref, err := store.WriteText(ctx, "job-1", "transcript.json", `{"turns":[]}`)
	if err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if ref != "/media/job-1/transcript.json" {
		t.Errorf("ref = %q, want /media/job-1/transcript.json", ref)
	}

	data, err := store.Read(ctx, "job-1", "transcript.json")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != `{"turns":[]}` {
		t.Errorf("data = %q", data)
	}
}

func TestLocalStoreReferenceIsPure(t *testing.T) {
	store, err := NewLocalStore(&LocalConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	// Reference is derivable before anything is written.
	ref := store.Reference("job-9", "summary.mp3")
	if ref != "/media/job-9/summary.mp3" {
		t.Errorf("ref = %q, want /media/job-9/summary.mp3", ref)
	}

	// No job directory should have been created.
	if _, err := os.Stat(store.Path("job-9", "")); !os.IsNotExist(err) {
		t.Error("Reference created a job directory")
	}
}

func TestLocalStoreLazyNamespace(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(&LocalConfig{Root: root})
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	if _, err := store.Write(context.Background(), "job-2", "summary.mp3", []byte{0xff, 0xfb}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "job-2", "summary.mp3")); err != nil {
		t.Errorf("artifact not on disk: %v", err)
	}
}

func TestLocalStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(&LocalConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	if _, err := store.WriteText(ctx, "job-3", "summary.json", "first"); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if _, err := store.WriteText(ctx, "job-3", "summary.json", "second"); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	data, err := store.Read(ctx, "job-3", "summary.json")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("data = %q, want second", data)
	}
}

func TestLocalStoreReadMissing(t *testing.T) {
	store, err := NewLocalStore(&LocalConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	if _, err := store.Read(context.Background(), "job-x", "nope.json"); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("Read missing = %v, want ErrArtifactNotFound", err)
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"summary.mp3":     "audio/mpeg",
		"transcript.json": "application/json",
		"notes.txt":       "text/plain; charset=utf-8",
		"source.ogg":      "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentTypeFor(name); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}
