package vectorstore

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/hopdex/internal/domain/schema"
)

// scienceSchema builds the corpus schema used across the package tests:
// cn identifier, three text metadata columns, float-list embedding.
func scienceSchema(t *testing.T) schema.Schema {
	t.Helper()
	descriptor := `{
		"cn": "str",
		"title": "str",
		"abstract": "str",
		"source": "str",
		"embedding": "List[float]"
	}`
	s, err := schema.Parse(strings.NewReader(descriptor))
	if err != nil {
		t.Fatalf("schema.Parse: %v", err)
	}
	return s
}

// writeTestFile drops content into a temp dir and returns the full path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func approxEq(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}
