package stage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"slidesift/internal/services"
)

func TestRequireFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "talk.mp4")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RequireFile(Extraction, "video", file); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := RequireFile(Extraction, "video", filepath.Join(dir, "none.mp4")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := RequireFile(Extraction, "video", dir); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for directory, got %v", err)
	}
}

func TestRequireDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.png")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RequireDir(OCR, "slides", dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := RequireDir(OCR, "slides", filepath.Join(dir, "missing")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := RequireDir(OCR, "slides", file); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for file, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	if h := Healthy("ocr"); !h.Ready || h.Name != "ocr" {
		t.Fatalf("unexpected healthy record %#v", h)
	}
	if h := Unhealthy("ocr", "tesseract missing"); h.Ready || h.Detail != "tesseract missing" {
		t.Fatalf("unexpected unhealthy record %#v", h)
	}
}
