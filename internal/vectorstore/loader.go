// Package vectorstore loads the document corpus from tabular input into an
// in-memory domain.VectorStore: schema validation, embedding parsing, the
// dimension consistency check and L2 normalization.
package vectorstore

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hopdex/internal/domain"
	"github.com/kailas-cloud/hopdex/internal/domain/schema"
)

// Format selects the table reader.
type Format string

// Input format constants.
const (
	// FormatAuto picks the reader from the file extension.
	FormatAuto    Format = "auto"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// IsValid checks if the format is one of the supported values.
func (f Format) IsValid() bool {
	return f == FormatAuto || f == FormatCSV || f == FormatParquet
}

// tableRow is one input row after reading: identifier, parsed embedding
// (empty when the cell failed to parse) and typed metadata cells.
type tableRow struct {
	docID     string
	embedding []float32
	meta      *domain.Record
}

// Loader reads and validates a vector store file.
type Loader struct {
	log *zap.Logger
}

// NewLoader creates a loader.
func NewLoader(log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{log: log}
}

// Load reads the table at path, validates it against the schema and returns
// the normalized in-memory store. Load never returns a partial store: any
// schema or dimension violation fails the whole call.
func (l *Loader) Load(path string, s schema.Schema, format Format) (*domain.VectorStore, error) {
	var (
		rows []tableRow
		err  error
	)
	switch resolveFormat(path, format) {
	case FormatCSV:
		rows, err = readCSV(path, s)
	case FormatParquet:
		rows, err = readParquet(path, s)
	default:
		return nil, fmt.Errorf("vector store %s: cannot determine format, use csv or parquet", path)
	}
	if err != nil {
		return nil, fmt.Errorf("vector store %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("vector store %s: no data rows", path)
	}

	// Dimension pass over every row, empties included: a row whose
	// embedding cell failed to parse carries dimension 0 and is rejected
	// here with its row number instead of corrupting similarity math later.
	want := len(rows[0].embedding)
	for i, row := range rows {
		if len(row.embedding) != want {
			return nil, fmt.Errorf("vector store %s: %w",
				path, domain.NewDimensionMismatch(i+1, len(row.embedding), want))
		}
	}

	docIDs := make([]string, len(rows))
	metadata := make([]*domain.Record, len(rows))
	vectors := make([][]float32, len(rows))
	for i, row := range rows {
		docIDs[i] = row.docID
		metadata[i] = row.meta
		vectors[i] = row.embedding
	}

	embeddings, err := domain.MatrixFromRows(vectors)
	if err != nil {
		return nil, fmt.Errorf("vector store %s: %w", path, err)
	}
	embeddings.NormalizeRows()

	store, err := domain.NewVectorStore(docIDs, embeddings, metadata)
	if err != nil {
		return nil, fmt.Errorf("vector store %s: %w", path, err)
	}

	l.log.Info("vector store loaded",
		zap.String("path", path),
		zap.Int("documents", store.Len()),
		zap.Int("dim", store.Dim()),
		zap.String("id_column", s.IDColumn()),
	)
	return store, nil
}

func resolveFormat(path string, format Format) Format {
	if format != FormatAuto && format != "" {
		return format
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".parquet":
		return FormatParquet
	}
	return ""
}
