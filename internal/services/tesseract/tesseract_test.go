package tesseract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"slidesift/internal/services"
	"slidesift/internal/testsupport"
)

func writeSlides(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		testsupport.WritePNG(t, filepath.Join(dir, name), 4, 4, testsupport.Flat(200))
	}
}

// fakeTesseract records the image list and writes a PDF with one page per image.
func fakeTesseract(t *testing.T, listed *[]string, gotArgs *[]string) CommandRunner {
	t.Helper()
	return func(_ context.Context, _ string, args ...string) ([]byte, error) {
		*gotArgs = append([]string(nil), args...)
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, err
		}
		*listed = strings.Fields(string(data))
		testsupport.WritePDF(t, args[1]+".pdf", len(*listed))
		return nil, nil
	}
}

func TestConvertProducesVerifiedPDF(t *testing.T) {
	slides := t.TempDir()
	writeSlides(t, slides, "slide_0010_sharpest.png", "slide_0002_sharpest.png")
	if err := os.Mkdir(filepath.Join(slides, "slide_0002"), 0o755); err != nil {
		t.Fatal(err)
	}
	pdfPath := filepath.Join(t.TempDir(), "out", "slides.pdf")

	var listed, args []string
	conv := NewConverter("", "russian+eng", nil)
	conv.WithCommandRunner(fakeTesseract(t, &listed, &args))

	result, err := conv.Convert(context.Background(), slides, pdfPath)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if result.Pages != 2 {
		t.Fatalf("pages = %d", result.Pages)
	}
	wantListed := []string{
		filepath.Join(slides, "slide_0002_sharpest.png"),
		filepath.Join(slides, "slide_0010_sharpest.png"),
	}
	if !slices.Equal(listed, wantListed) {
		t.Fatalf("listed = %v, want %v", listed, wantListed)
	}
	if args[1] != strings.TrimSuffix(pdfPath, ".pdf") {
		t.Fatalf("output base = %s", args[1])
	}
	if args[3] != "rus+eng" || args[4] != "pdf" {
		t.Fatalf("unexpected args %v", args)
	}
	if _, err := os.Stat(args[0]); !os.IsNotExist(err) {
		t.Fatalf("image list should be removed, stat err = %v", err)
	}
}

func TestConvertRenamesNonPDFExtension(t *testing.T) {
	slides := t.TempDir()
	writeSlides(t, slides, "a.png")
	target := filepath.Join(t.TempDir(), "deck.out")

	var listed, args []string
	conv := NewConverter("tesseract", "", nil)
	conv.WithCommandRunner(fakeTesseract(t, &listed, &args))

	if _, err := conv.Convert(context.Background(), slides, target); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected PDF at %s: %v", target, err)
	}
	if conv.Language() != DefaultLanguage {
		t.Fatalf("language = %s", conv.Language())
	}
}

func TestConvertNoImages(t *testing.T) {
	conv := NewConverter("", "", nil)
	conv.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		t.Fatal("tesseract should not run without images")
		return nil, nil
	})
	_, err := conv.Convert(context.Background(), t.TempDir(), filepath.Join(t.TempDir(), "x.pdf"))
	if !errors.Is(err, services.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestConvertRejectsUnreadablePDF(t *testing.T) {
	slides := t.TempDir()
	writeSlides(t, slides, "a.png")
	conv := NewConverter("", "", nil)
	conv.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		return nil, os.WriteFile(args[1]+".pdf", []byte("not a pdf"), 0o644)
	})
	_, err := conv.Convert(context.Background(), slides, filepath.Join(t.TempDir(), "x.pdf"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestConvertToolFailure(t *testing.T) {
	slides := t.TempDir()
	writeSlides(t, slides, "a.png")
	conv := NewConverter("", "", nil)
	conv.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Failed loading language 'xyz'"), errors.New("exit status 1")
	})
	_, err := conv.Convert(context.Background(), slides, filepath.Join(t.TempDir(), "x.pdf"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "Failed loading language") {
		t.Fatalf("error should carry tool output: %v", err)
	}
}

func TestPageCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "three.pdf")
	testsupport.WritePDF(t, path, 3)
	pages, err := PageCount(path)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if pages != 3 {
		t.Fatalf("pages = %d", pages)
	}
}
