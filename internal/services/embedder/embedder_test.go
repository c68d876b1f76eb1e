package embedder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"slidesift/internal/embedstore"
	"slidesift/internal/services"
)

func writePNGs(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// fakeGenerator embeds every listed image as a one-hot vector.
func fakeGenerator(t *testing.T, gotArgs *[]string) CommandRunner {
	t.Helper()
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*gotArgs = append([]string{name}, args...)
		n := len(args)
		imagesDir, destDir := args[n-3], args[n-2]
		images, err := ListImages(imagesDir)
		if err != nil {
			return nil, err
		}
		store := &embedstore.Store{}
		for i, img := range images {
			vec := make([]float32, 4)
			vec[i%4] = 1
			store.Append(img, vec)
		}
		return nil, embedstore.SaveFaiss(destDir, store)
	}
}

func TestGenerateLoadsFaissOutput(t *testing.T) {
	frames := t.TempDir()
	writePNGs(t, frames, "slide_0002.png", "slide_0001.png", "notes.txt")
	dest := filepath.Join(t.TempDir(), "store")

	var args []string
	gen := NewGenerator([]string{"uvx", "slidesift-embed"}, "", nil)
	gen.WithCommandRunner(fakeGenerator(t, &args))

	result, err := gen.Generate(context.Background(), frames, dest)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []string{"uvx", "slidesift-embed", frames, dest, DefaultModel}
	if !slices.Equal(args, want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	if result.Store.Len() != 2 || result.Store.Dim() != 4 {
		t.Fatalf("store = %d x %d", result.Store.Len(), result.Store.Dim())
	}
	if filepath.Base(result.Store.Paths[0]) != "slide_0001.png" {
		t.Fatalf("first path = %s", result.Store.Paths[0])
	}
}

func TestGenerateNoImages(t *testing.T) {
	gen := NewGenerator([]string{"embed"}, "m", nil)
	gen.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		t.Fatal("generator should not run without images")
		return nil, nil
	})
	_, err := gen.Generate(context.Background(), t.TempDir(), t.TempDir())
	if !errors.Is(err, services.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestGenerateToolFailure(t *testing.T) {
	frames := t.TempDir()
	writePNGs(t, frames, "a.png")
	gen := NewGenerator([]string{"embed"}, "m", nil)
	gen.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("CUDA out of memory"), errors.New("exit status 1")
	})
	_, err := gen.Generate(context.Background(), frames, t.TempDir())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestGenerateInvalidOutput(t *testing.T) {
	frames := t.TempDir()
	writePNGs(t, frames, "a.png")
	gen := NewGenerator([]string{"embed"}, "m", nil)
	gen.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		return nil, nil
	})
	_, err := gen.Generate(context.Background(), frames, t.TempDir())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGenerateRequiresCommand(t *testing.T) {
	gen := NewGenerator(nil, "", nil)
	_, err := gen.Generate(context.Background(), t.TempDir(), t.TempDir())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
