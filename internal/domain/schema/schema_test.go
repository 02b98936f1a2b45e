package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/hopdex/internal/domain"
	"github.com/kailas-cloud/hopdex/internal/domain/schema/field"
)

const scienceDescriptor = `{
	"cn": "str",
	"title": "str",
	"abstract": "str",
	"source": "str",
	"embedding": "List[float]"
}`

func mustParse(t *testing.T, descriptor string) Schema {
	t.Helper()
	s, err := Parse(strings.NewReader(descriptor))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return s
}

func TestParse_PreservesColumnOrder(t *testing.T) {
	s := mustParse(t, scienceDescriptor)

	want := []string{"cn", "title", "abstract", "source", "embedding"}
	fields := s.Fields()
	if len(fields) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(fields))
	}
	for i, f := range fields {
		if f.Name() != want[i] {
			t.Errorf("column %d = %q, want %q", i, f.Name(), want[i])
		}
	}
}

func TestParse_DesignatesIdentifier(t *testing.T) {
	tests := []struct {
		descriptor string
		wantID     string
	}{
		{`{"cn": "str", "embedding": "List[float]"}`, "cn"},
		{`{"CN": "str", "embedding": "List[float]"}`, "CN"},
		{`{"doc_id": "str", "embedding": "List[float]"}`, "doc_id"},
	}
	for _, tt := range tests {
		s := mustParse(t, tt.descriptor)
		if s.IDColumn() != tt.wantID {
			t.Errorf("IDColumn() = %q, want %q", s.IDColumn(), tt.wantID)
		}
	}
}

func TestParse_NoIdentifier(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"title": "str", "embedding": "List[float]"}`))
	if err == nil {
		t.Fatal("expected error without identifier column")
	}
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Errorf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestParse_AmbiguousIdentifier(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"cn": "str", "doc_id": "str", "embedding": "List[float]"}`))
	if err == nil {
		t.Fatal("expected error for two identifier candidates")
	}
	if !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("error = %q, want 'ambiguous'", err)
	}
}

func TestParse_MissingEmbedding(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"cn": "str", "title": "str"}`))
	if err == nil {
		t.Fatal("expected error without embedding column")
	}
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Errorf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestParse_EmbeddingWrongType(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"cn": "str", "embedding": "str"}`))
	if err == nil {
		t.Fatal("expected error for non-List[float] embedding")
	}
}

func TestParse_NotAnObject(t *testing.T) {
	_, err := Parse(strings.NewReader(`["cn", "embedding"]`))
	if err == nil {
		t.Fatal("expected error for non-object descriptor")
	}
}

func TestNew_DuplicateColumn(t *testing.T) {
	fields := []field.Field{
		field.Reconstruct("cn", field.String),
		field.Reconstruct("cn", field.String),
		field.Reconstruct("embedding", field.FloatList),
	}
	_, err := New(fields)
	if err == nil {
		t.Fatal("expected error for duplicate column")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error = %q, want 'duplicate'", err)
	}
}

func TestMetadataFields_ExcludesIDAndEmbedding(t *testing.T) {
	s := mustParse(t, scienceDescriptor)

	meta := s.MetadataFields()
	want := []string{"title", "abstract", "source"}
	if len(meta) != len(want) {
		t.Fatalf("expected %d metadata columns, got %d", len(want), len(meta))
	}
	for i, f := range meta {
		if f.Name() != want[i] {
			t.Errorf("metadata column %d = %q, want %q", i, f.Name(), want[i])
		}
	}
}

func TestTypeOf(t *testing.T) {
	s := mustParse(t, scienceDescriptor)

	if ft, ok := s.TypeOf("embedding"); !ok || ft != field.FloatList {
		t.Errorf("TypeOf(embedding) = %q, %v", ft, ok)
	}
	if _, ok := s.TypeOf("missing"); ok {
		t.Error("TypeOf(missing) should report absence")
	}
}
