package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"slidesift/internal/services"
)

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

// writeFrames simulates ffmpeg by expanding the output pattern n times.
func writeFrames(n int) CommandRunner {
	return func(_ context.Context, _ string, args ...string) ([]byte, error) {
		pattern := args[len(args)-1]
		for i := 1; i <= n; i++ {
			if err := os.WriteFile(fmt.Sprintf(pattern, i), []byte("png"), 0o644); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
}

func TestBuildArgs(t *testing.T) {
	args := BuildArgs("in.mp4", "/frames", 0.25)
	want := []string{
		"-i", "in.mp4",
		"-vf", "select='gt(scene,0.25)',setpts=N/FRAME_RATE/TB",
		"-vsync", "vfr",
		"-frame_pts", "1",
		"-q:v", "2",
		filepath.Join("/frames", "slide_%04d.png"),
	}
	if !slices.Equal(args, want) {
		t.Fatalf("BuildArgs = %v, want %v", args, want)
	}
}

func TestExtractCountsFrames(t *testing.T) {
	video := writeVideo(t)
	framesDir := filepath.Join(t.TempDir(), "frames")

	extractor := NewExtractor("", 0, nil)
	if extractor.Threshold() != DefaultThreshold {
		t.Fatalf("threshold = %v", extractor.Threshold())
	}
	extractor.WithCommandRunner(writeFrames(3))

	result, err := extractor.Extract(context.Background(), video, framesDir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Frames) != 3 {
		t.Fatalf("frames = %v", result.Frames)
	}
	if filepath.Base(result.Frames[0]) != "slide_0001.png" {
		t.Fatalf("first frame = %s", result.Frames[0])
	}
}

func TestExtractToleratesToolFailure(t *testing.T) {
	video := writeVideo(t)
	framesDir := t.TempDir()
	extractor := NewExtractor("ffmpeg", 0.3, nil)
	write := writeFrames(2)
	extractor.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if _, err := write(ctx, name, args...); err != nil {
			return nil, err
		}
		return []byte("corrupt packet\n"), errors.New("exit status 1")
	})

	result, err := extractor.Extract(context.Background(), video, framesDir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Frames) != 2 {
		t.Fatalf("frames = %v", result.Frames)
	}
	if result.ToolWarning != "corrupt packet" {
		t.Fatalf("tool warning = %q", result.ToolWarning)
	}
}

func TestExtractNoFrames(t *testing.T) {
	video := writeVideo(t)
	extractor := NewExtractor("ffmpeg", 0.4, nil)
	extractor.WithCommandRunner(writeFrames(0))

	_, err := extractor.Extract(context.Background(), video, t.TempDir())
	if !errors.Is(err, services.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "lower threshold (now 0.4)") {
		t.Fatalf("error lacks threshold hint: %v", err)
	}
}

func TestExtractMissingVideo(t *testing.T) {
	extractor := NewExtractor("ffmpeg", 0, nil)
	extractor.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		t.Fatal("runner should not be invoked")
		return nil, nil
	})
	_, err := extractor.Extract(context.Background(), filepath.Join(t.TempDir(), "none.mp4"), t.TempDir())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFramesFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"slide_0002.png", "slide_0001.PNG", "other.png", "slide_0003.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "slide_dir.png"), 0o755); err != nil {
		t.Fatal(err)
	}
	frames, err := ListFrames(dir)
	if err != nil {
		t.Fatalf("ListFrames: %v", err)
	}
	got := make([]string, len(frames))
	for i, f := range frames {
		got[i] = filepath.Base(f)
	}
	want := []string{"slide_0001.PNG", "slide_0002.png"}
	if !slices.Equal(got, want) {
		t.Fatalf("frames = %v, want %v", got, want)
	}
}
