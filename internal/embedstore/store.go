package embedstore

import (
	"errors"
	"fmt"
	"math"
)

// Store is an ordered list of frame paths and their embeddings. Row i of
// Vectors belongs to Paths[i].
type Store struct {
	Paths   []string
	Vectors [][]float32
}

// Len returns the number of rows.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Paths)
}

// Dim returns the vector dimensionality, or 0 for an empty store.
func (s *Store) Dim() int {
	if s == nil || len(s.Vectors) == 0 {
		return 0
	}
	return len(s.Vectors[0])
}

// Validate reports mismatched lengths, ragged vectors, and duplicate paths.
func (s *Store) Validate() error {
	if s == nil {
		return errors.New("embedstore: nil store")
	}
	if len(s.Paths) != len(s.Vectors) {
		return fmt.Errorf("embedstore: %d paths but %d vectors", len(s.Paths), len(s.Vectors))
	}
	dim := s.Dim()
	seen := make(map[string]int, len(s.Paths))
	for i, path := range s.Paths {
		if path == "" {
			return fmt.Errorf("embedstore: row %d has an empty path", i)
		}
		if prev, ok := seen[path]; ok {
			return fmt.Errorf("embedstore: path %q appears at rows %d and %d", path, prev, i)
		}
		seen[path] = i
		if len(s.Vectors[i]) != dim {
			return fmt.Errorf("embedstore: row %d has dimension %d, want %d", i, len(s.Vectors[i]), dim)
		}
	}
	if len(s.Paths) > 0 && dim == 0 {
		return errors.New("embedstore: vectors have zero dimension")
	}
	return nil
}

// Index builds a path to row lookup.
func (s *Store) Index() map[string]int {
	idx := make(map[string]int, s.Len())
	for i, path := range s.Paths {
		idx[path] = i
	}
	return idx
}

// Rows returns the rows for the given paths in the same order. Unknown paths
// produce an error.
func (s *Store) Rows(paths []string) ([]int, error) {
	idx := s.Index()
	rows := make([]int, len(paths))
	for i, path := range paths {
		row, ok := idx[path]
		if !ok {
			return nil, fmt.Errorf("embedstore: path %q not in store", path)
		}
		rows[i] = row
	}
	return rows, nil
}

// Append adds one row.
func (s *Store) Append(path string, vector []float32) {
	s.Paths = append(s.Paths, path)
	s.Vectors = append(s.Vectors, vector)
}

// Normalize returns an L2-normalised copy of v. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// SquaredL2 returns the squared Euclidean distance between equal-length vectors.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
