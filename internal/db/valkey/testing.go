package valkey

import "github.com/redis/rueidis"

// NewStoreForTest wraps a rueidis client (usually a mock) in a Store.
// Test-only.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
