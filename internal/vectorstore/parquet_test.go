package vectorstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/hopdex/internal/domain"
)

// listDoc is a corpus row with the embedding stored as a parquet list.
type listDoc struct {
	CN        string    `parquet:"cn"`
	Title     string    `parquet:"title"`
	Abstract  string    `parquet:"abstract"`
	Source    *string   `parquet:"source,optional"`
	Embedding []float32 `parquet:"embedding,list"`
}

// rawDoc stores the embedding as one serialized string cell, the shape a
// CSV-to-parquet conversion produces.
type rawDoc struct {
	CN        string `parquet:"cn"`
	Title     string `parquet:"title"`
	Abstract  string `parquet:"abstract"`
	Source    string `parquet:"source"`
	Embedding string `parquet:"embedding"`
}

func writeParquetFile[T any](t *testing.T, name string, docs []T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	w := parquet.NewGenericWriter[T](f)
	if _, err := w.Write(docs); err != nil {
		t.Fatalf("write rows: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func strPtr(s string) *string { return &s }

func TestLoad_Parquet_FloatList(t *testing.T) {
	docs := []listDoc{
		{CN: "JAKO001", Title: "Perovskite cells", Abstract: "Stability.", Source: strPtr("materials_journal"), Embedding: []float32{1, 0}},
		{CN: "JAKO002", Title: "Graphene films", Abstract: "Scaling.", Source: strPtr("nano_letters"), Embedding: []float32{0, 1}},
		{CN: "JAKO003", Title: "Battery anodes", Abstract: "Expansion.", Source: strPtr("energy_reports"), Embedding: []float32{3, 4}},
	}
	path := writeParquetFile(t, "corpus.parquet", docs)

	store, err := NewLoader(nil).Load(path, scienceSchema(t), FormatAuto)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if store.Len() != 3 || store.Dim() != 2 {
		t.Fatalf("expected 3 docs of dim 2, got %d/%d", store.Len(), store.Dim())
	}
	if got := store.DocID(1); got != "JAKO002" {
		t.Errorf("expected id JAKO002, got %q", got)
	}

	row := store.Embeddings().Row(2)
	if !approxEq(row[0], 0.6) || !approxEq(row[1], 0.8) {
		t.Errorf("expected normalized [0.6 0.8], got %v", row)
	}

	meta := store.MetadataAt(0)
	if title, _ := meta.Get("title"); title != "Perovskite cells" {
		t.Errorf("expected title metadata, got %v", title)
	}
	if src, _ := meta.Get("source"); src != "materials_journal" {
		t.Errorf("expected source metadata, got %v", src)
	}
}

func TestLoad_Parquet_NullMetadata(t *testing.T) {
	docs := []listDoc{
		{CN: "X1", Title: "T", Abstract: "A", Source: nil, Embedding: []float32{1, 0}},
	}
	path := writeParquetFile(t, "corpus.parquet", docs)

	store, err := NewLoader(nil).Load(path, scienceSchema(t), FormatParquet)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	src, ok := store.MetadataAt(0).Get("source")
	if !ok {
		t.Fatal("declared column must be present in metadata even when null")
	}
	if src != nil {
		t.Errorf("expected nil for a null cell, got %v", src)
	}
}

func TestLoad_Parquet_StringEmbedding(t *testing.T) {
	docs := []rawDoc{
		{CN: "X1", Title: "T1", Abstract: "A1", Source: "S", Embedding: "[1.0, 0.0]"},
		{CN: "X2", Title: "T2", Abstract: "A2", Source: "S", Embedding: "[0.0, 1.0]"},
	}
	path := writeParquetFile(t, "corpus.parquet", docs)

	store, err := NewLoader(nil).Load(path, scienceSchema(t), FormatParquet)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if store.Len() != 2 || store.Dim() != 2 {
		t.Fatalf("expected 2 docs of dim 2, got %d/%d", store.Len(), store.Dim())
	}
	row := store.Embeddings().Row(1)
	if !approxEq(row[0], 0) || !approxEq(row[1], 1) {
		t.Errorf("expected [0 1], got %v", row)
	}
}

func TestLoad_Parquet_MalformedStringEmbedding(t *testing.T) {
	docs := []rawDoc{
		{CN: "X1", Title: "T", Abstract: "A", Source: "S", Embedding: "[1.0, 0.0]"},
		{CN: "X2", Title: "T", Abstract: "A", Source: "S", Embedding: "broken"},
	}
	path := writeParquetFile(t, "corpus.parquet", docs)

	_, err := NewLoader(nil).Load(path, scienceSchema(t), FormatParquet)
	var dimErr *domain.DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dimErr.Row != 2 || dimErr.Got != 0 {
		t.Errorf("expected row 2 with dimension 0, got %+v", dimErr)
	}
}

func TestLoad_Parquet_DimensionMismatch(t *testing.T) {
	docs := []listDoc{
		{CN: "X1", Title: "T", Abstract: "A", Embedding: []float32{1, 0}},
		{CN: "X2", Title: "T", Abstract: "A", Embedding: []float32{1, 0, 0}},
	}
	path := writeParquetFile(t, "corpus.parquet", docs)

	_, err := NewLoader(nil).Load(path, scienceSchema(t), FormatParquet)
	var dimErr *domain.DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dimErr.Row != 2 || dimErr.Got != 3 || dimErr.Want != 2 {
		t.Errorf("expected row 2 got 3 want 2, got %+v", dimErr)
	}
}

func TestLoad_Parquet_MissingColumn(t *testing.T) {
	type partialDoc struct {
		CN        string    `parquet:"cn"`
		Title     string    `parquet:"title"`
		Embedding []float32 `parquet:"embedding,list"`
	}
	docs := []partialDoc{{CN: "X1", Title: "T", Embedding: []float32{1, 0}}}
	path := writeParquetFile(t, "corpus.parquet", docs)

	_, err := NewLoader(nil).Load(path, scienceSchema(t), FormatParquet)
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}
