// Package tesseract converts the representative slide images into a single
// searchable PDF and checks that the result is readable.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"slidesift/internal/fileutil"
	"slidesift/internal/language"
	"slidesift/internal/logging"
	"slidesift/internal/services"
)

// Defaults for the OCR stage.
const (
	DefaultBinary   = "tesseract"
	DefaultLanguage = "eng"
)

const stageName = "ocr"

// CommandRunner executes a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Converter drives tesseract in PDF output mode.
type Converter struct {
	binary        string
	language      string
	logger        *slog.Logger
	commandRunner CommandRunner
}

// Result describes a produced PDF.
type Result struct {
	PDFPath string
	Images  []string
	Pages   int
}

// NewConverter constructs a converter. lang accepts any form the language
// package understands, including "+"-joined lists.
func NewConverter(binary, lang string, logger *slog.Logger) *Converter {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	lang = language.ToTesseract(lang)
	if lang == "" {
		lang = DefaultLanguage
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Converter{
		binary:   binary,
		language: lang,
		logger:   logging.NewComponentLogger(logger, "tesseract"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Converter) WithCommandRunner(runner CommandRunner) {
	c.commandRunner = runner
}

// Language returns the tesseract language argument.
func (c *Converter) Language() string { return c.language }

// Convert OCRs every *.png directly inside slidesDir, in name order, into pdfPath.
func (c *Converter) Convert(ctx context.Context, slidesDir, pdfPath string) (Result, error) {
	result := Result{PDFPath: pdfPath}
	images, err := fileutil.ListByExt(slidesDir, ".png")
	if err != nil {
		return result, services.Wrap(services.ErrNotFound, stageName, "list images", fmt.Sprintf("read %s", slidesDir), err)
	}
	if len(images) == 0 {
		return result, services.Wrap(services.ErrEmptyInput, stageName, "list images", fmt.Sprintf("no PNG images found in %s", slidesDir), nil)
	}
	result.Images = images

	if err := os.MkdirAll(filepath.Dir(pdfPath), 0o755); err != nil {
		return result, services.Wrap(services.ErrTransient, stageName, "prepare output", "create output directory", err)
	}

	listFile, err := writeImageList(images)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, stageName, "prepare input", "write image list", err)
	}
	defer os.Remove(listFile)

	started := time.Now()
	outputBase := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath))
	args := BuildArgs(listFile, outputBase, c.language)
	c.logger.Info("running OCR",
		logging.String(logging.FieldEventType, "ocr_start"),
		logging.Int("image_count", len(images)),
		logging.String("language", c.language),
		logging.String("slides_dir", slidesDir),
	)

	if output, err := c.run(ctx, args...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return result, services.Wrap(services.ErrMissingDependency, stageName, "run tesseract", fmt.Sprintf("%s not available", c.binary), err)
		}
		return result, services.Wrap(services.ErrExternalTool, stageName, "run tesseract", strings.TrimSpace(string(output)), err)
	}

	// tesseract always appends .pdf to the output base.
	produced := outputBase + ".pdf"
	if produced != pdfPath {
		if err := os.Rename(produced, pdfPath); err != nil {
			return result, services.Wrap(services.ErrExternalTool, stageName, "verify output", "tesseract output missing", err)
		}
	}

	pages, err := PageCount(pdfPath)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, stageName, "verify output", "unreadable PDF", err)
	}
	if pages == 0 {
		return result, services.Wrap(services.ErrExternalTool, stageName, "verify output", "PDF has no pages", nil)
	}
	result.Pages = pages
	if pages != len(images) {
		logging.WarnWithContext(c.logger, "page count differs from image count", "ocr_page_mismatch",
			logging.Int("page_count", pages),
			logging.Int("image_count", len(images)),
		)
	}

	c.logger.Info("PDF created",
		logging.String(logging.FieldEventType, "ocr_complete"),
		logging.Int("page_count", pages),
		logging.String("pdf_path", pdfPath),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return result, nil
}

func (c *Converter) run(ctx context.Context, args ...string) ([]byte, error) {
	if c.commandRunner != nil {
		return c.commandRunner(ctx, c.binary, args...)
	}
	cmd := exec.CommandContext(ctx, c.binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// BuildArgs returns the tesseract arguments for multi-image PDF output.
func BuildArgs(listFile, outputBase, lang string) []string {
	return []string{listFile, outputBase, "-l", lang, "pdf"}
}

func writeImageList(images []string) (string, error) {
	f, err := os.CreateTemp("", "slidesift-ocr-*.txt")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(strings.Join(images, "\n") + "\n"); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// PageCount opens path as a PDF and returns its page count.
func PageCount(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return r.NumPage(), nil
}
