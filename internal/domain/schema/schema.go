// Package schema holds the vector store column descriptor: an ordered list
// of typed columns with a designated identifier column and embedding column.
package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kailas-cloud/hopdex/internal/domain"
	"github.com/kailas-cloud/hopdex/internal/domain/schema/field"
)

// EmbeddingColumn is the fixed name of the embedding column.
const EmbeddingColumn = "embedding"

// idColumnCandidates are the accepted identifier column names, checked in
// this order. Exactly one must be declared.
var idColumnCandidates = []string{"cn", "CN", "doc_id"}

// Schema is an immutable, ordered column descriptor.
type Schema struct {
	fields   []field.Field
	index    map[string]int
	idColumn string
}

// New validates and creates a Schema. The field order is preserved; it
// drives CSV column typing and metadata rendering order.
func New(fields []field.Field) (Schema, error) {
	if len(fields) == 0 {
		return Schema{}, fmt.Errorf("%w: no columns declared", domain.ErrInvalidSchema)
	}

	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if _, dup := index[f.Name()]; dup {
			return Schema{}, fmt.Errorf("%w: duplicate column %q", domain.ErrInvalidSchema, f.Name())
		}
		index[f.Name()] = i
	}

	idColumn := ""
	for _, cand := range idColumnCandidates {
		if _, ok := index[cand]; !ok {
			continue
		}
		if idColumn != "" {
			return Schema{}, fmt.Errorf("%w: identifier column ambiguous, both %q and %q declared",
				domain.ErrInvalidSchema, idColumn, cand)
		}
		idColumn = cand
	}
	if idColumn == "" {
		return Schema{}, fmt.Errorf("%w: no identifier column among %v", domain.ErrInvalidSchema, idColumnCandidates)
	}

	embIdx, ok := index[EmbeddingColumn]
	if !ok {
		return Schema{}, fmt.Errorf("%w: missing %q column", domain.ErrInvalidSchema, EmbeddingColumn)
	}
	if ft := fields[embIdx].FieldType(); ft != field.FloatList {
		return Schema{}, fmt.Errorf("%w: %q column must be %s, declared %s",
			domain.ErrInvalidSchema, EmbeddingColumn, field.FloatList, ft)
	}

	own := make([]field.Field, len(fields))
	copy(own, fields)
	return Schema{fields: own, index: index, idColumn: idColumn}, nil
}

// Parse reads a JSON object descriptor ({"column": "type", ...}) preserving
// key order, which a plain map unmarshal would destroy.
func Parse(r io.Reader) (Schema, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return Schema{}, fmt.Errorf("%w: %v", domain.ErrInvalidSchema, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Schema{}, fmt.Errorf("%w: descriptor must be a JSON object", domain.ErrInvalidSchema)
	}

	var fields []field.Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Schema{}, fmt.Errorf("%w: %v", domain.ErrInvalidSchema, err)
		}
		name, _ := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return Schema{}, fmt.Errorf("%w: column %q: %v", domain.ErrInvalidSchema, name, err)
		}
		typeName, ok := valTok.(string)
		if !ok {
			return Schema{}, fmt.Errorf("%w: column %q: type must be a string", domain.ErrInvalidSchema, name)
		}

		f, err := field.New(name, field.Type(typeName))
		if err != nil {
			return Schema{}, fmt.Errorf("%w: %v", domain.ErrInvalidSchema, err)
		}
		fields = append(fields, f)
	}
	if _, err := dec.Token(); err != nil {
		return Schema{}, fmt.Errorf("%w: %v", domain.ErrInvalidSchema, err)
	}

	return New(fields)
}

// Load reads and parses a descriptor file.
func Load(path string) (Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return Schema{}, fmt.Errorf("open schema %s: %w", path, err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return Schema{}, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// Fields returns the declared columns in order, as a copy.
func (s Schema) Fields() []field.Field {
	out := make([]field.Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of declared columns.
func (s Schema) Len() int { return len(s.fields) }

// IDColumn returns the designated identifier column name.
func (s Schema) IDColumn() string { return s.idColumn }

// Contains reports whether the column is declared.
func (s Schema) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// TypeOf returns the declared type of a column.
func (s Schema) TypeOf(name string) (field.Type, bool) {
	i, ok := s.index[name]
	if !ok {
		return "", false
	}
	return s.fields[i].FieldType(), true
}

// MetadataFields returns the declared columns minus the identifier and
// embedding columns, in declaration order.
func (s Schema) MetadataFields() []field.Field {
	out := make([]field.Field, 0, len(s.fields))
	for _, f := range s.fields {
		if f.Name() == s.idColumn || f.Name() == EmbeddingColumn {
			continue
		}
		out = append(out, f)
	}
	return out
}
