package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCopyFileMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileMode(src, dst, 0o755); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	// Check executable bits are set (umask may clear some bits).
	if info.Mode().Perm()&0o111 == 0 {
		t.Fatalf("expected executable bits, got %o", info.Mode().Perm())
	}
}

func TestCopyFilePreserveKeepsModeAndMtime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "slide_0001.png")
	dst := filepath.Join(dir, "copy.png")

	if err := os.WriteFile(src, []byte("png bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	// Pre-existing destination with different bits must be overwritten.
	if err := os.WriteFile(dst, []byte("stale content that is longer"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFilePreserve(src, dst); err != nil {
		t.Fatalf("CopyFilePreserve: %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %o, want 600", info.Mode().Perm())
	}
	if !info.ModTime().Equal(mtime) {
		t.Fatalf("mtime = %v, want %v", info.ModTime(), mtime)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "png bytes" {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestCopyIntoDir(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "slide_0007.png")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	dst, err := CopyIntoDir(src, dstDir)
	if err != nil {
		t.Fatalf("CopyIntoDir: %v", err)
	}
	if dst != filepath.Join(dstDir, "slide_0007.png") {
		t.Fatalf("unexpected destination %s", dst)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("expected copy at %s: %v", dst, err)
	}
}

func TestCopyFilePreserveMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFilePreserve(filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.png")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyFilePreserveOntoItselfKeepsContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "slide_0001.png")
	if err := os.WriteFile(src, []byte("png bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "alias.png")
	if err := os.Link(src, link); err != nil {
		t.Fatal(err)
	}

	for _, dst := range []string{src, filepath.Join(dir, ".", "slide_0001.png"), link} {
		if err := CopyFilePreserve(src, dst); !errors.Is(err, ErrSameFile) {
			t.Fatalf("CopyFilePreserve(%s) error = %v, want ErrSameFile", dst, err)
		}
	}
	if _, err := CopyIntoDir(src, dir); !errors.Is(err, ErrSameFile) {
		t.Fatalf("CopyIntoDir error = %v, want ErrSameFile", err)
	}
	got, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "png bytes" {
		t.Fatalf("source content changed to %q", got)
	}
}

func TestListByExt(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png", "c.PNG", "d.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "cluster.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := ListByExt(dir, ".png")
	if err != nil {
		t.Fatalf("ListByExt: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a.png" || filepath.Base(files[1]) != "b.png" {
		t.Fatalf("unexpected listing %v", files)
	}

	if _, err := ListByExt(filepath.Join(dir, "missing"), ".png"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
