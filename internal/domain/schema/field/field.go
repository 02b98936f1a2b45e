package field

import "fmt"

// Type is the declared primitive type of a schema column. The constants
// mirror the descriptor file syntax.
type Type string

// Column type constants.
const (
	// String is a plain text column.
	String Type = "str"
	Int    Type = "int"
	Float  Type = "float"
	Bool   Type = "bool"
	// StringList is a serialized list of strings.
	StringList Type = "List[str]"
	// FloatList is a serialized list of floats, the embedding column type.
	FloatList Type = "List[float]"
)

// IsValid checks if the type is one of the supported values.
func (t Type) IsValid() bool {
	switch t {
	case String, Int, Float, Bool, StringList, FloatList:
		return true
	}
	return false
}

// Field is an immutable value object describing one declared column.
type Field struct {
	name      string
	fieldType Type
}

// New validates and creates a Field.
// Name must be non-empty, max 64 chars. Type must be a supported value.
func New(name string, ft Type) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("column name is required")
	}
	if len(name) > 64 {
		return Field{}, fmt.Errorf("column name %q too long (max 64)", name)
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid column type %q for %q", ft, name)
	}
	return Field{name: name, fieldType: ft}, nil
}

// Reconstruct creates a Field without validation (descriptor hydration).
func Reconstruct(name string, ft Type) Field {
	return Field{name: name, fieldType: ft}
}

// Name returns the column name.
func (f Field) Name() string { return f.name }

// FieldType returns the column's declared type.
func (f Field) FieldType() Type { return f.fieldType }
