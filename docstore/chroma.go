package docstore

import (
	"context"
	"fmt"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

// Metadata keys persisted per point.
const (
	keySource     = "source"
	keyDocName    = "doc_name"
	keyChunkIndex = "chunk_index"
	keyModality   = "modality"
	keySnippet    = "snippet"
	keyPath       = "path"
	keyURL        = "url"
	keyTitle      = "title"
	keyIsArticle  = "is_article"
)

// ChromaStore persists points in a Chroma collection configured for
// cosine similarity. Scores are reported as 1 - distance.
type ChromaStore struct {
	client     chroma.Client
	col        chroma.Collection
	collection string
}

type ChromaStoreConfig struct {
	BaseURL    string
	Collection string
}

// NewChromaStore connects to Chroma. The collection handle is attached
// by EnsureCollection (ingest path) or Open (query path).
func NewChromaStore(cfg ChromaStoreConfig) (*ChromaStore, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	return &ChromaStore{
		client:     client,
		collection: cfg.Collection,
	}, nil
}

// EnsureCollection creates the collection if it does not exist, with
// cosine space and the embedding dimension recorded in its metadata.
// An existing collection is used as-is, never resized.
func (ds *ChromaStore) EnsureCollection(ctx context.Context, dim int) error {
	col, err := ds.client.GetOrCreateCollection(ctx, ds.collection,
		chroma.WithCollectionMetadataCreate(chroma.NewMetadata(
			chroma.NewStringAttribute("hnsw:space", "cosine"),
			chroma.NewIntAttribute("embedding_dim", int64(dim)),
		)),
	)
	if err != nil {
		return fmt.Errorf("failed to ensure collection %s: %w", ds.collection, err)
	}

	ds.col = col
	return nil
}

// Open attaches to an existing collection without creating it.
func (ds *ChromaStore) Open(ctx context.Context) error {
	col, err := ds.client.GetCollection(ctx, ds.collection)
	if err != nil {
		return fmt.Errorf("failed to open collection %s: %w", ds.collection, err)
	}

	ds.col = col
	return nil
}

// Upsert writes a batch of points. Points that share an ID with a
// stored point replace it.
func (ds *ChromaStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	ids := make([]chroma.DocumentID, len(points))
	embs := make([]embeddings.Embedding, len(points))
	texts := make([]string, len(points))
	metas := make([]chroma.DocumentMetadata, len(points))
	for i, p := range points {
		ids[i] = chroma.DocumentID(p.ID)
		embs[i] = embeddings.NewEmbeddingFromFloat32(p.Vector)
		texts[i] = p.Text
		metas[i] = payloadMetadata(p.Payload)
	}

	err := ds.col.Upsert(ctx,
		chroma.WithIDs(ids...),
		chroma.WithEmbeddings(embs...),
		chroma.WithTexts(texts...),
		chroma.WithMetadatas(metas...),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}

	return nil
}

// Search returns the limit nearest article points to the given vector,
// best first.
func (ds *ChromaStore) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	r, err := ds.col.Query(ctx,
		chroma.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqBool(keyIsArticle, true)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	metadatas := r.GetMetadatasGroups()[0]
	distances := r.GetDistancesGroups()[0]

	hits := make([]Hit, 0, len(metadatas))
	for i := range metadatas {
		hits = append(hits, Hit{
			Score:   1 - float32(distances[i]),
			Payload: metadataPayload(metadatas[i]),
		})
	}

	return hits, nil
}

// ScrollByDocName fetches up to limit article points whose doc_name
// matches exactly, bypassing similarity ranking.
func (ds *ChromaStore) ScrollByDocName(ctx context.Context, docName string, limit int) ([]Payload, error) {
	r, err := ds.col.Get(ctx,
		chroma.WithWhereGet(chroma.And(
			chroma.EqString(keyDocName, docName),
			chroma.EqBool(keyIsArticle, true),
		)),
		chroma.WithLimitGet(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll doc %s: %w", docName, err)
	}

	metadatas := r.GetMetadatas()
	payloads := make([]Payload, 0, len(metadatas))
	for _, meta := range metadatas {
		payloads = append(payloads, metadataPayload(meta))
	}

	return payloads, nil
}

func payloadMetadata(p Payload) chroma.DocumentMetadata {
	attrs := []*chroma.MetaAttribute{
		chroma.NewStringAttribute(keySource, p.Source),
		chroma.NewStringAttribute(keyDocName, p.DocName),
		chroma.NewIntAttribute(keyChunkIndex, int64(p.ChunkIndex)),
		chroma.NewStringAttribute(keyModality, p.Modality),
		chroma.NewStringAttribute(keySnippet, p.Snippet),
	}
	if p.Path != "" {
		attrs = append(attrs, chroma.NewStringAttribute(keyPath, p.Path))
	}
	if p.URL != "" {
		attrs = append(attrs, chroma.NewStringAttribute(keyURL, p.URL))
	}
	if p.Title != "" {
		attrs = append(attrs, chroma.NewStringAttribute(keyTitle, p.Title))
	}
	if p.IsArticle {
		attrs = append(attrs, chroma.NewBoolAttribute(keyIsArticle, true))
	}

	return chroma.NewDocumentMetadata(attrs...)
}

func metadataPayload(meta chroma.DocumentMetadata) Payload {
	var p Payload
	p.Source, _ = meta.GetString(keySource)
	p.DocName, _ = meta.GetString(keyDocName)
	p.Modality, _ = meta.GetString(keyModality)
	p.Snippet, _ = meta.GetString(keySnippet)
	p.Path, _ = meta.GetString(keyPath)
	p.URL, _ = meta.GetString(keyURL)
	p.Title, _ = meta.GetString(keyTitle)
	p.IsArticle, _ = meta.GetBool(keyIsArticle)
	if idx, ok := meta.GetInt(keyChunkIndex); ok {
		p.ChunkIndex = int(idx)
	} else if idx, ok := meta.GetFloat(keyChunkIndex); ok {
		// Chroma may hand numbers back as floats.
		p.ChunkIndex = int(idx)
	}

	return p
}
