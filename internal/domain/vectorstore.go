package domain

import "fmt"

// VectorStore is the in-memory corpus: document ids, their L2-normalized
// embedding matrix (row i belongs to DocID i), and per-document metadata.
// Built once per run and shared read-only across workers.
type VectorStore struct {
	docIDs     []string
	embeddings *Matrix
	metadata   []*Record
}

// NewVectorStore validates length agreement and creates a store.
func NewVectorStore(docIDs []string, embeddings *Matrix, metadata []*Record) (*VectorStore, error) {
	if embeddings == nil {
		return nil, fmt.Errorf("vector store: nil embedding matrix")
	}
	if len(docIDs) != embeddings.Rows() || len(docIDs) != len(metadata) {
		return nil, fmt.Errorf("vector store: %d ids, %d embedding rows, %d metadata records",
			len(docIDs), embeddings.Rows(), len(metadata))
	}
	return &VectorStore{docIDs: docIDs, embeddings: embeddings, metadata: metadata}, nil
}

// Len returns the number of documents.
func (s *VectorStore) Len() int { return len(s.docIDs) }

// Dim returns the embedding dimension.
func (s *VectorStore) Dim() int { return s.embeddings.Cols() }

// DocID returns the identifier of document i.
func (s *VectorStore) DocID(i int) string { return s.docIDs[i] }

// MetadataAt returns the metadata record of document i.
func (s *VectorStore) MetadataAt(i int) *Record { return s.metadata[i] }

// Embeddings returns the normalized embedding matrix. Read-only by contract.
func (s *VectorStore) Embeddings() *Matrix { return s.embeddings }
