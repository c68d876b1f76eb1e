// Package sharpness ranks images by focus using the variance of the Laplacian.
//
// Images are reduced to 8-bit luma (0.299R + 0.587G + 0.114B, rounded), filtered
// with the 4-neighbour Laplacian kernel using reflect-101 borders, and scored by
// the population variance of the response. Higher is sharper. Any decode failure
// scores 0.
package sharpness

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"slidesift/internal/services"
)

// Scorer returns a non-negative sharpness score for an image file.
type Scorer interface {
	Score(path string) float64
}

// FileScorer is a Scorer that can also report why an image scored 0.
type FileScorer interface {
	Scorer
	ScoreFile(path string) (float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(path string) float64

// Score calls f(path).
func (f ScorerFunc) Score(path string) float64 { return f(path) }

type laplacian struct{}

func (laplacian) Score(path string) float64              { return Score(path) }
func (laplacian) ScoreFile(path string) (float64, error) { return ScoreFile(path) }

// Laplacian is the default Scorer.
var Laplacian FileScorer = laplacian{}

// Score returns the sharpness of the image at path, or 0 if it cannot be decoded.
func Score(path string) float64 {
	score, err := ScoreFile(path)
	if err != nil {
		return 0
	}
	return score
}

// ScoreFile is Score with the decode error exposed. The error wraps services.ErrDecode.
func ScoreFile(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, services.Wrap(services.ErrDecode, "sharpness", "open image", fmt.Sprintf("cannot open %s", path), err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return 0, services.Wrap(services.ErrDecode, "sharpness", "decode image", fmt.Sprintf("cannot decode %s", path), err)
	}
	return ScoreImage(img), nil
}

// ScoreImage returns the Laplacian variance of img.
func ScoreImage(img image.Image) float64 {
	gray, w, h := luma(img)
	if w == 0 || h == 0 {
		return 0
	}

	n := float64(w * h)
	var sum, sumSq float64
	for y := 0; y < h; y++ {
		up := reflect101(y-1, h) * w
		row := y * w
		down := reflect101(y+1, h) * w
		for x := 0; x < w; x++ {
			left := reflect101(x-1, w)
			right := reflect101(x+1, w)
			v := float64(gray[up+x]) + float64(gray[down+x]) +
				float64(gray[row+left]) + float64(gray[row+right]) -
				4*float64(gray[row+x])
			sum += v
			sumSq += v * v
		}
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 || math.IsNaN(variance) {
		return 0
	}
	return variance
}

// reflect101 mirrors an out-of-range index without repeating the edge pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - 2 - i
	}
	return i
}

func luma(img image.Image) ([]uint8, int, int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]uint8, w*h)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			copy(out[y*w:(y+1)*w], src.Pix[y*src.Stride:y*src.Stride+w])
		}
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < w; x++ {
				p := row[x*4:]
				out[y*w+x] = weigh(p[0], p[1], p[2])
			}
		}
	case *image.RGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < w; x++ {
				p := row[x*4:]
				out[y*w+x] = weigh(p[0], p[1], p[2])
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				out[y*w+x] = weigh(c.R, c.G, c.B)
			}
		}
	}
	return out, w, h
}

func weigh(r, g, b uint8) uint8 {
	return uint8(math.Round(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)))
}
