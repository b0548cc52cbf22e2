package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Reserved column names. Every other column is treated as one embedding
// dimension.
const (
	colID      = "id"
	colLabel   = "label"
	colSeq     = "seq"
	colCluster = "cluster"
)

// FromCSV reads a table with one row per record and builds a Dataset.
// The table must carry id and label columns. When embedder is nil the
// embeddings must already be materialized as the remaining columns; when an
// embedder is supplied the table must carry a seq column, and the embedder
// produces the vectors.
func FromCSV(r io.Reader, embedder Embedder) (*Dataset, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %v", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[name] = i
	}

	if _, ok := colIdx[colID]; !ok {
		return nil, &SchemaError{Column: colID}
	}
	if _, ok := colIdx[colLabel]; !ok {
		return nil, &SchemaError{Column: colLabel}
	}
	if embedder != nil {
		if _, ok := colIdx[colSeq]; !ok {
			return nil, &SchemaError{Column: colSeq}
		}
	}

	// Embedding columns are whatever remains after dropping the reserved
	// names, in header order.
	var embCols []int
	for i, name := range header {
		switch name {
		case colID, colLabel, colSeq, colCluster:
		default:
			embCols = append(embCols, i)
		}
	}
	if embedder == nil && len(embCols) == 0 {
		return nil, &SchemaError{Column: "embedding columns"}
	}

	var (
		ids    []string
		labels []float32
		seqs   []string
		flat   []float32
	)

	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %v", row, err)
		}

		ids = append(ids, record[colIdx[colID]])

		label, err := strconv.ParseFloat(record[colIdx[colLabel]], 32)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid label %q: %v", row, record[colIdx[colLabel]], err)
		}
		labels = append(labels, float32(label))

		if embedder != nil {
			seqs = append(seqs, record[colIdx[colSeq]])
			continue
		}

		for _, c := range embCols {
			v, err := strconv.ParseFloat(record[c], 32)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid embedding value %q in column %s: %v", row, record[c], header[c], err)
			}
			flat = append(flat, float32(v))
		}
	}

	latentDim := len(embCols)
	if embedder != nil {
		vectors, err := embedder.Embed(seqs)
		if err != nil {
			return nil, fmt.Errorf("failed to embed sequences: %v", err)
		}
		if len(vectors) != len(ids) {
			return nil, &ShapeError{Field: "embeddings", Got: len(vectors), Want: len(ids)}
		}
		if len(vectors) > 0 {
			latentDim = len(vectors[0])
		}
		for i, vec := range vectors {
			if len(vec) != latentDim {
				return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(vec), latentDim)
			}
			flat = append(flat, vec...)
		}
	}

	return New(ids, labels, flat, latentDim)
}

// FromCSVFile opens path and builds a Dataset via FromCSV.
func FromCSVFile(path string, embedder Embedder) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	ds, err := FromCSV(f, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %v", path, err)
	}
	return ds, nil
}
