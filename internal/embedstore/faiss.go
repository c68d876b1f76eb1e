package embedstore

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// IndexFileName is the faiss flat index written by the embedding generator.
	IndexFileName = "embeddings.index"
	// MetadataFileName lists the frame paths in index row order.
	MetadataFileName = "metadata.json"

	faissFlatL2 = "IxF2"
	faissFlatIP = "IxFI"

	faissMetricL2 = 1

	// faiss writes two legacy placeholder fields in every index header.
	faissHeaderDummy = int64(1 << 20)

	// MaxDim bounds the vector width accepted from an index header.
	MaxDim = 1 << 16
)

// Metadata mirrors metadata.json.
type Metadata struct {
	ImagePaths     []string `json:"image_paths"`
	EmbeddingShape []int    `json:"embedding_shape"`
}

// ReadFaissIndex decodes a faiss IndexFlatL2 (or IndexFlatIP) file into row vectors.
func ReadFaissIndex(r io.Reader) ([][]float32, int, error) {
	br := bufio.NewReader(r)
	fourcc := make([]byte, 4)
	if _, err := io.ReadFull(br, fourcc); err != nil {
		return nil, 0, fmt.Errorf("faiss: read header: %w", err)
	}
	switch string(fourcc) {
	case faissFlatL2, faissFlatIP:
	default:
		return nil, 0, fmt.Errorf("faiss: unsupported index type %q (want flat index)", fourcc)
	}

	var header struct {
		Dim       int32
		NTotal    int64
		Dummy1    int64
		Dummy2    int64
		IsTrained uint8
		Metric    int32
	}
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("faiss: read header: %w", err)
	}
	if header.Dim <= 0 || header.Dim > MaxDim || header.NTotal < 0 {
		return nil, 0, fmt.Errorf("faiss: invalid header d=%d ntotal=%d", header.Dim, header.NTotal)
	}
	if header.Metric > faissMetricL2 {
		// non-builtin metrics carry an extra float argument
		var metricArg float32
		if err := binary.Read(br, binary.LittleEndian, &metricArg); err != nil {
			return nil, 0, fmt.Errorf("faiss: read metric arg: %w", err)
		}
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, 0, fmt.Errorf("faiss: read code count: %w", err)
	}
	dim := int(header.Dim)
	want := uint64(header.NTotal) * uint64(dim)
	if count != want {
		return nil, 0, fmt.Errorf("faiss: code count %d does not match ntotal*d=%d", count, want)
	}

	// Rows are read one at a time so a header claiming more rows than the
	// stream holds fails on EOF instead of allocating up front.
	vectors := make([][]float32, 0, min(header.NTotal, 1<<12))
	for i := int64(0); i < header.NTotal; i++ {
		row := make([]float32, dim)
		if err := binary.Read(br, binary.LittleEndian, row); err != nil {
			return nil, 0, fmt.Errorf("faiss: read codes (row %d of %d): %w", i, header.NTotal, err)
		}
		vectors = append(vectors, row)
	}
	return vectors, dim, nil
}

// WriteFaissIndex encodes vectors as a faiss IndexFlatL2 file.
func WriteFaissIndex(w io.Writer, vectors [][]float32, dim int) error {
	if dim <= 0 || dim > MaxDim {
		return fmt.Errorf("faiss: invalid dimension %d", dim)
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(faissFlatL2); err != nil {
		return err
	}
	header := struct {
		Dim       int32
		NTotal    int64
		Dummy1    int64
		Dummy2    int64
		IsTrained uint8
		Metric    int32
		Count     uint64
	}{
		Dim:       int32(dim),
		NTotal:    int64(len(vectors)),
		Dummy1:    faissHeaderDummy,
		Dummy2:    faissHeaderDummy,
		IsTrained: 1,
		Metric:    faissMetricL2,
		Count:     uint64(len(vectors)) * uint64(dim),
	}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("faiss: write header: %w", err)
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("faiss: row %d has dimension %d, want %d", i, len(vec), dim)
		}
		if err := binary.Write(bw, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("faiss: write row %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// LoadFaiss reads embeddings.index and metadata.json from dir.
func LoadFaiss(dir string) (*Store, error) {
	meta, err := readMetadata(filepath.Join(dir, MetadataFileName))
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(dir, IndexFileName))
	if err != nil {
		return nil, fmt.Errorf("open faiss index: %w", err)
	}
	defer file.Close()

	vectors, dim, err := ReadFaissIndex(file)
	if err != nil {
		return nil, err
	}
	if len(meta.EmbeddingShape) == 2 && len(vectors) > 0 {
		if meta.EmbeddingShape[0] != len(vectors) || meta.EmbeddingShape[1] != dim {
			return nil, fmt.Errorf("embedstore: metadata shape %v does not match index %dx%d", meta.EmbeddingShape, len(vectors), dim)
		}
	}

	store := &Store{Paths: meta.ImagePaths, Vectors: vectors}
	if store.Paths == nil {
		store.Paths = []string{}
	}
	if err := store.Validate(); err != nil {
		return nil, err
	}
	return store, nil
}

// SaveFaiss writes the store as embeddings.index and metadata.json in dir.
func SaveFaiss(dir string, store *Store) error {
	if err := store.Validate(); err != nil {
		return err
	}
	if store.Len() == 0 {
		return errors.New("embedstore: refusing to write an empty faiss index")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	indexPath := filepath.Join(dir, IndexFileName)
	file, err := os.Create(indexPath)
	if err != nil {
		return fmt.Errorf("create faiss index: %w", err)
	}
	if err := WriteFaissIndex(file, store.Vectors, store.Dim()); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close faiss index: %w", err)
	}

	meta := Metadata{ImagePaths: store.Paths, EmbeddingShape: []int{store.Len(), store.Dim()}}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFileName), data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func readMetadata(path string) (Metadata, error) {
	var meta Metadata
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	return meta, nil
}
