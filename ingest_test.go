package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikirag/docstore"
	"wikirag/readers"
)

type fakePointStore struct {
	dim     int
	batches [][]docstore.Point
}

func (s *fakePointStore) EnsureCollection(ctx context.Context, dim int) error {
	s.dim = dim
	return nil
}

func (s *fakePointStore) Upsert(ctx context.Context, points []docstore.Point) error {
	batch := make([]docstore.Point, len(points))
	copy(batch, points)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *fakePointStore) points() []docstore.Point {
	var all []docstore.Point
	for _, b := range s.batches {
		all = append(all, b...)
	}
	return all
}

type fakeIngestEmbedder struct {
	calls int
}

func (e *fakeIngestEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return []float32{float32(len(text)), 0, 1}, nil
}

func (e *fakeIngestEmbedder) WaitReady(ctx context.Context, attempts int, interval time.Duration) error {
	return nil
}

func testIngestor(cfg *Config, store *fakePointStore) *Ingestor {
	return &Ingestor{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg:      cfg,
		store:    store,
		embedder: &fakeIngestEmbedder{},
		readers:  []FileReader{&readers.TxtFileReader{}},
	}
}

func ingestConfig(t *testing.T) *Config {
	t.Helper()

	cfg := defaultConfig()
	cfg.DocsRoot = filepath.Join(t.TempDir(), "none")
	cfg.WikiGlob = filepath.Join(t.TempDir(), "none", "*.xml")
	return cfg
}

func Test_Run_EnsuresCollectionWithWarmupDim(t *testing.T) {
	store := &fakePointStore{}
	ing := testIngestor(ingestConfig(t), store)

	require.NoError(t, ing.Run(context.Background()))
	assert.Equal(t, 3, store.dim)
}

func Test_IngestUserDocs(t *testing.T) {
	root := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	write("b.txt", "second document content")
	write("a.txt", "first document content")
	write("empty.txt", "   \n ")
	write("image.png", "binary junk")

	cfg := ingestConfig(t)
	cfg.DocsRoot = root
	store := &fakePointStore{}
	ing := testIngestor(cfg, store)

	require.NoError(t, ing.IngestUserDocs(context.Background()))

	points := store.points()
	require.Len(t, points, 2)

	// Files are visited in sorted order; empty and unsupported files
	// are skipped silently.
	assert.Equal(t, "a.txt", points[0].Payload.DocName)
	assert.Equal(t, "b.txt", points[1].Payload.DocName)

	for _, p := range points {
		assert.Equal(t, "user", p.Payload.Source)
		assert.Equal(t, "text", p.Payload.Modality)
		assert.Equal(t, 0, p.Payload.ChunkIndex)
		assert.False(t, p.Payload.IsArticle)
		assert.NotEmpty(t, p.Payload.Path)
		assert.NotEmpty(t, p.Payload.Snippet)
		assert.NotEmpty(t, p.ID)
	}

	// Random IDs: a re-run must not reuse them.
	rerun := &fakePointStore{}
	ing2 := testIngestor(cfg, rerun)
	require.NoError(t, ing2.IngestUserDocs(context.Background()))
	assert.NotEqual(t, points[0].ID, rerun.points()[0].ID)
}

func Test_IngestUserDocs_FlushesInBatches(t *testing.T) {
	root := t.TempDir()
	content := strings.Repeat("x", 2570) // 257 chunks at size 10
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), []byte(content), 0o644))

	cfg := ingestConfig(t)
	cfg.DocsRoot = root
	cfg.ChunkSize = 10
	cfg.ChunkOverlap = 0

	store := &fakePointStore{}
	ing := testIngestor(cfg, store)
	require.NoError(t, ing.IngestUserDocs(context.Background()))

	require.Len(t, store.batches, 2)
	assert.Len(t, store.batches[0], flushSize)
	assert.Len(t, store.batches[1], 1)
}

func Test_IngestUserFile_FlushesInBatches(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "big.txt")
	content := strings.Repeat("x", 2570) // 257 chunks at size 10
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := ingestConfig(t)
	cfg.DocsRoot = root
	cfg.ChunkSize = 10
	cfg.ChunkOverlap = 0

	store := &fakePointStore{}
	ing := testIngestor(cfg, store)
	require.NoError(t, ing.IngestUserFile(context.Background(), path))

	require.Len(t, store.batches, 2)
	assert.Len(t, store.batches[0], flushSize)
	assert.Len(t, store.batches[1], 1)
}

func Test_IngestWikipedia(t *testing.T) {
	cfg := ingestConfig(t)
	cfg.WikiGlob = filepath.Join("testdata", "pages.xml")

	store := &fakePointStore{}
	ing := testIngestor(cfg, store)
	require.NoError(t, ing.IngestWikipedia(context.Background()))

	points := store.points()
	require.Len(t, points, 2)

	// Only article pages survive: "Category:X" is filtered out.
	dog, cat := points[0], points[1]
	assert.Equal(t, "Dog", dog.Payload.DocName)
	assert.Equal(t, "Cat", cat.Payload.DocName)

	for _, p := range points {
		assert.Equal(t, "wikipedia", p.Payload.Source)
		assert.True(t, p.Payload.IsArticle)
		assert.Equal(t, 0, p.Payload.ChunkIndex)
		assert.Contains(t, p.Payload.URL, "https://en.wikipedia.org/wiki/")
	}

	// Wikilink and template markup is stripped from the snippet.
	assert.Contains(t, cat.Payload.Snippet, "See the cat family for relatives.")
	assert.NotContains(t, cat.Payload.Snippet, "{{")

	// Deterministic IDs: a re-run writes the same point IDs.
	assert.Equal(t, MakeID("wikipedia", "Dog", "0"), dog.ID)
	rerun := &fakePointStore{}
	ing2 := testIngestor(cfg, rerun)
	require.NoError(t, ing2.IngestWikipedia(context.Background()))
	assert.Equal(t, dog.ID, rerun.points()[0].ID)
}

func Test_IngestWikipedia_MaxPages(t *testing.T) {
	cfg := ingestConfig(t)
	cfg.WikiGlob = filepath.Join("testdata", "pages.xml")
	cfg.MaxWikiPages = 1

	store := &fakePointStore{}
	ing := testIngestor(cfg, store)
	require.NoError(t, ing.IngestWikipedia(context.Background()))

	points := store.points()
	require.Len(t, points, 1)
	assert.Equal(t, "Dog", points[0].Payload.DocName)
}

func Test_IngestWikipedia_NoDumps(t *testing.T) {
	store := &fakePointStore{}
	ing := testIngestor(ingestConfig(t), store)

	require.NoError(t, ing.IngestWikipedia(context.Background()))
	assert.Empty(t, store.batches)
}

func Test_EndToEnd_DogIsRetrievable(t *testing.T) {
	cfg := ingestConfig(t)
	cfg.WikiGlob = filepath.Join("testdata", "pages.xml")
	cfg.MaxWikiPages = 1

	store := &fakePointStore{}
	ing := testIngestor(cfg, store)
	require.NoError(t, ing.Run(context.Background()))

	// Expose the ingested points through the retrieval path.
	var hits []docstore.Hit
	for _, p := range store.points() {
		if p.Payload.IsArticle {
			hits = append(hits, docstore.Hit{Score: 0.9, Payload: p.Payload})
		}
	}
	retriever := testRetriever(&fakeSearchStore{hits: hits})

	out, err := retriever.Search(context.Background(), "when were dogs domesticated?", 6)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Dog", out[0].Payload.DocName)
	assert.True(t, out[0].Payload.IsArticle)
	assert.NotEmpty(t, out[0].Payload.Snippet)
	assert.NotEmpty(t, out[0].Payload.URL)
}
