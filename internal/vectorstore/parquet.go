package vectorstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/hopdex/internal/domain"
	"github.com/kailas-cloud/hopdex/internal/domain/schema"
	"github.com/kailas-cloud/hopdex/internal/domain/schema/field"
)

// readParquet reads a parquet vector store row-group by row-group with the
// low-level reader. Generic-схему не используем: Reconstruct падает на
// nullable колонках со сложными типами, а колонки резолвим по именам.
func readParquet(path string, s schema.Schema) ([]tableRow, error) {
	h, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	cols, err := resolveColumns(h.pf, s)
	if err != nil {
		return nil, err
	}

	var rows []tableRow
	for _, rg := range h.pf.RowGroups() {
		reader := parquet.NewRowGroupReader(rg)
		buf := make([]parquet.Row, 1000)
		for {
			n, readErr := reader.ReadRows(buf)
			for i := 0; i < n; i++ {
				rows = append(rows, rowToTableRow(buf[i], cols, s))
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, fmt.Errorf("read rows: %w", readErr)
			}
		}
	}
	return rows, nil
}

// parquetColumns maps schema columns to leaf indexes in the file.
type parquetColumns struct {
	id        int
	embedding int
	meta      map[int]field.Field
}

// resolveColumns locates leaf-level column indexes by name. The file must
// cover every declared column. List columns nest their leaf under the
// top-level name, so matching goes by path[0].
func resolveColumns(pf *parquet.File, s schema.Schema) (parquetColumns, error) {
	cols := parquetColumns{id: -1, embedding: -1, meta: make(map[int]field.Field)}

	metaByName := make(map[string]field.Field)
	for _, fld := range s.MetadataFields() {
		metaByName[fld.Name()] = fld
	}

	seen := make(map[string]bool)
	for i, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			continue
		}
		name := path[0]
		seen[name] = true
		switch name {
		case s.IDColumn():
			cols.id = i
		case schema.EmbeddingColumn:
			cols.embedding = i
		default:
			if fld, ok := metaByName[name]; ok {
				cols.meta[i] = fld
			}
		}
	}

	var missing []string
	for _, fld := range s.Fields() {
		if !seen[fld.Name()] {
			missing = append(missing, fld.Name())
		}
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: input missing declared columns %v", domain.ErrInvalidSchema, missing)
	}
	return cols, nil
}

// rowToTableRow extracts one table row from a generic parquet row. List
// columns surface as repeated leaf values sharing one column index.
func rowToTableRow(row parquet.Row, cols parquetColumns, s schema.Schema) tableRow {
	var out tableRow
	meta := domain.NewRecord()
	for _, fld := range s.MetadataFields() {
		meta.Set(fld.Name(), nil)
	}
	var listAcc map[string][]any

	for _, v := range row {
		switch col := v.Column(); {
		case col == cols.id:
			out.docID = v.String()
		case col == cols.embedding:
			if v.IsNull() {
				continue
			}
			// Str-колонка несёт сериализованный вектор, числовая — элементы списка.
			if v.Kind() == parquet.ByteArray {
				out.embedding = parseEmbeddingCell(v.String())
			} else if f, ok := kindFloat(v); ok {
				out.embedding = append(out.embedding, float32(f))
			}
		default:
			fld, ok := cols.meta[col]
			if !ok || v.IsNull() {
				continue
			}
			switch fld.FieldType() {
			case field.StringList, field.FloatList:
				if listAcc == nil {
					listAcc = make(map[string][]any)
				}
				listAcc[fld.Name()] = append(listAcc[fld.Name()], scalarValue(v, fld.FieldType()))
			default:
				meta.Set(fld.Name(), scalarValue(v, fld.FieldType()))
			}
		}
	}
	for name, vals := range listAcc {
		meta.Set(name, vals)
	}
	out.meta = meta
	return out
}

// scalarValue converts one parquet value per the declared column type,
// falling back to the value's natural representation.
func scalarValue(v parquet.Value, ft field.Type) any {
	switch ft {
	case field.Int:
		switch v.Kind() {
		case parquet.Int32:
			return int(v.Int32())
		case parquet.Int64:
			return int(v.Int64())
		}
	case field.Float, field.FloatList:
		if f, ok := kindFloat(v); ok {
			return f
		}
	case field.Bool:
		if v.Kind() == parquet.Boolean {
			return v.Boolean()
		}
	}
	return v.String()
}

// kindFloat extracts a numeric parquet value as float64.
func kindFloat(v parquet.Value) (float64, bool) {
	switch v.Kind() {
	case parquet.Double:
		return v.Double(), true
	case parquet.Float:
		return float64(v.Float()), true
	case parquet.Int32:
		return float64(v.Int32()), true
	case parquet.Int64:
		return float64(v.Int64()), true
	}
	return 0, false
}

// parquetHandle wraps parquet.File with its underlying os.File for cleanup.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() {
	_ = h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}
