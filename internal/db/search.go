package db

// KNNQuery is the input for vector similarity search.
// Results come back ordered by descending similarity.
type KNNQuery struct {
	IndexName    string
	VectorField  string // default "vector"
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit; Score is cosine similarity in [0,1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
