// Package hopdex embeds the dense retrieval engine for multi-hop question
// answering over scientific document corpora.
//
// A Client loads a schema-validated vector store (CSV or Parquet), builds
// an exact top-k search backend over it and answers queries through a
// caller-supplied embedder:
//
//	client, _ := hopdex.New(
//	    hopdex.WithStore("corpus.parquet", "schema.json"),
//	    hopdex.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	hits, _ := client.Search(ctx, "what is sparse attention?", 5)
//
// Multi-hop questions carry their externally decomposed sub-questions; the
// engine encodes all of them in one provider call, searches them as one
// batch and merges the per-query hit lists into a fixed-width candidate
// list:
//
//	res, _ := client.Retrieve(ctx, hopdex.Question{
//	    ID:        "q42",
//	    Text:      "Who supervised the author of the paper introducing X?",
//	    SingleHop: []string{"Which paper introduced X?", "Who supervised its author?"},
//	})
//
// An optional Redis or Valkey store caches embeddings across runs; see
// WithRedisCache and WithValkeyCache.
package hopdex
