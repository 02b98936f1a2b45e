package vectorstore

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kailas-cloud/hopdex/internal/domain"
	"github.com/kailas-cloud/hopdex/internal/domain/schema"
	"github.com/kailas-cloud/hopdex/internal/domain/schema/field"
)

// readCSV reads a CSV vector store. The header must be a superset of the
// schema's declared columns; extra columns are ignored.
func readCSV(path string, s schema.Schema) ([]tableRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	var missing []string
	for _, fld := range s.Fields() {
		if _, ok := pos[fld.Name()]; !ok {
			missing = append(missing, fld.Name())
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: input missing declared columns %v", domain.ErrInvalidSchema, missing)
	}

	idIdx := pos[s.IDColumn()]
	embIdx := pos[schema.EmbeddingColumn]
	metaFields := s.MetadataFields()

	var rows []tableRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}

		meta := domain.NewRecord()
		for _, fld := range metaFields {
			meta.Set(fld.Name(), typeCell(record[pos[fld.Name()]], fld.FieldType()))
		}
		rows = append(rows, tableRow{
			docID:     record[idIdx],
			embedding: parseEmbeddingCell(record[embIdx]),
			meta:      meta,
		})
	}
	return rows, nil
}

// parseEmbeddingCell parses a serialized float list ("[0.1, 0.2, ...]").
// A malformed cell yields an empty vector; the loader's dimension pass
// rejects it with the row number, never silently.
func parseEmbeddingCell(cell string) []float32 {
	var vec []float32
	if err := json.Unmarshal([]byte(strings.TrimSpace(cell)), &vec); err != nil {
		return nil
	}
	return vec
}

// typeCell converts a CSV cell per the declared column type. Typing is
// best-effort: a cell that fails to parse keeps its raw string so metadata
// never aborts a load.
func typeCell(cell string, ft field.Type) any {
	switch ft {
	case field.Int:
		if v, err := strconv.Atoi(strings.TrimSpace(cell)); err == nil {
			return v
		}
	case field.Float:
		if v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
			return v
		}
	case field.Bool:
		if v, err := strconv.ParseBool(strings.TrimSpace(cell)); err == nil {
			return v
		}
	case field.StringList:
		var v []string
		if err := json.Unmarshal([]byte(cell), &v); err == nil {
			return v
		}
	case field.FloatList:
		var v []float64
		if err := json.Unmarshal([]byte(cell), &v); err == nil {
			return v
		}
	}
	return cell
}
