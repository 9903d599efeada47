package docstore

// Payload is the provenance metadata stored with every point and
// returned with every hit. It is the citation unit at answer time.
type Payload struct {
	Source     string `json:"source"`
	DocName    string `json:"doc_name"`
	ChunkIndex int    `json:"chunk_index"`
	Modality   string `json:"modality"`
	Snippet    string `json:"snippet"`
	Path       string `json:"path,omitempty"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	IsArticle  bool   `json:"is_article,omitempty"`
}

// Point is one chunk ready for storage: ID, embedding, chunk text and
// payload. Dump points use deterministic IDs so re-ingestion overwrites;
// user-doc points use random IDs and duplicate on re-runs.
type Point struct {
	ID      string
	Vector  []float32
	Text    string
	Payload Payload
}

// Hit is a retrieved point with its similarity score.
type Hit struct {
	Score   float32
	Payload Payload
}
