package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"wikirag/docstore"
	"wikirag/ollama"
	"wikirag/readers"
)

const (
	// flushSize bounds how many points accumulate before an upsert.
	flushSize = 256

	// snippetLen caps the stored payload snippet.
	snippetLen = 500

	// Readiness polling for the embedding service.
	readyAttempts = 60
	readyInterval = 2 * time.Second
)

// PointStore is the slice of the vector store the ingest pipeline needs.
type PointStore interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []docstore.Point) error
}

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	WaitReady(ctx context.Context, attempts int, interval time.Duration) error
}

// FileReader extracts plain text from one family of file formats.
type FileReader interface {
	CanRead(path string) bool
	ReadText(path string) (string, error)
}

// Ingestor drives extraction, chunking, embedding and batched upserts
// for both corpora. It runs fully sequentially; batching exists to
// bound memory and amortize round-trips, not for concurrency.
type Ingestor struct {
	log      *slog.Logger
	cfg      *Config
	store    PointStore
	embedder Embedder
	readers  []FileReader
	progress bool
}

var watchDocs bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest user documents and Wikipedia dumps into the vector store",
	Long: `Ingest runs two pipelines in sequence: user documents under the
configured root, then every dump file matching the configured glob.
Dump points get deterministic IDs, so re-running ingest overwrites them;
user-doc points get random IDs and re-runs duplicate them.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&watchDocs, "watch", false, "stay alive and re-ingest user docs on change")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := docstore.NewChromaStore(docstore.ChromaStoreConfig{
		BaseURL:    cfg.ChromaURL,
		Collection: cfg.Collection,
	})
	if err != nil {
		return err
	}

	ing := &Ingestor{
		log:   logger,
		cfg:   cfg,
		store: store,
		embedder: ollama.NewClient(ollama.Config{
			BaseURL:       cfg.OllamaURL,
			EmbedModel:    cfg.EmbedModel,
			GenerateModel: cfg.GenerateModel,
		}),
		readers:  []FileReader{&readers.TxtFileReader{}, &readers.UniversalFileReader{}},
		progress: true,
	}

	if err := ing.Run(ctx); err != nil {
		return err
	}

	if watchDocs {
		w := &Watcher{
			log:      logger,
			root:     cfg.DocsRoot,
			debounce: time.Duration(cfg.MergeEventsMs) * time.Millisecond,
			ingest:   ing.IngestUserFile,
		}
		return w.Watch(ctx)
	}

	return nil
}

// Run waits for the embedding service, sizes the collection from a
// warm-up embedding and runs the user-doc and dump pipelines.
func (ing *Ingestor) Run(ctx context.Context) error {
	if err := ing.embedder.WaitReady(ctx, readyAttempts, readyInterval); err != nil {
		return fmt.Errorf("embedding service not ready: %w", err)
	}

	warm, err := ing.embedder.Embed(ctx, "warmup")
	if err != nil {
		return fmt.Errorf("warm-up embedding failed: %w", err)
	}

	if err := ing.store.EnsureCollection(ctx, len(warm)); err != nil {
		return err
	}

	if err := ing.IngestUserDocs(ctx); err != nil {
		return err
	}
	if err := ing.IngestWikipedia(ctx); err != nil {
		return err
	}

	ing.log.Info("ingest complete", "collection", ing.cfg.Collection)
	return nil
}

// IngestUserDocs walks the docs root in sorted order, extracts text per
// file and upserts its chunks with random point IDs.
func (ing *Ingestor) IngestUserDocs(ctx context.Context) error {
	if _, err := os.Stat(ing.cfg.DocsRoot); err != nil {
		ing.log.Info("no user docs root, skipping", "root", ing.cfg.DocsRoot)
		return nil
	}

	var files []string
	err := filepath.WalkDir(ing.cfg.DocsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan user docs: %w", err)
	}
	sort.Strings(files)

	bar := ing.newBar(len(files), "user_docs")
	batch := make([]docstore.Point, 0, flushSize)
	for _, path := range files {
		bar.Add(1)

		if err := ing.appendUserFile(ctx, path, &batch); err != nil {
			return err
		}
	}

	return ing.flush(ctx, &batch)
}

// IngestUserFile ingests a single user document immediately. The
// watcher uses it to re-ingest files as they change.
func (ing *Ingestor) IngestUserFile(ctx context.Context, path string) error {
	var batch []docstore.Point
	if err := ing.appendUserFile(ctx, path, &batch); err != nil {
		return err
	}
	return ing.flush(ctx, &batch)
}

// appendUserFile chunks and embeds one document into batch, flushing
// whenever the batch reaches flushSize points.
func (ing *Ingestor) appendUserFile(ctx context.Context, path string, batch *[]docstore.Point) error {
	text := ing.extract(path)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	for i, ch := range Chunkify(text, ing.cfg.ChunkSize, ing.cfg.ChunkOverlap) {
		vec, err := ing.embedder.Embed(ctx, ch)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d of %s: %w", i, path, err)
		}

		*batch = append(*batch, docstore.Point{
			ID:     uuid.NewString(),
			Vector: vec,
			Text:   ch,
			Payload: docstore.Payload{
				Source:     "user",
				DocName:    filepath.Base(path),
				ChunkIndex: i,
				Modality:   "text",
				Snippet:    Truncate(ch, snippetLen),
				Path:       path,
			},
		})
		if len(*batch) >= flushSize {
			if err := ing.flush(ctx, batch); err != nil {
				return err
			}
		}
	}

	return nil
}

// IngestWikipedia streams every dump matching the configured glob,
// keeping only article pages and assigning deterministic point IDs.
func (ing *Ingestor) IngestWikipedia(ctx context.Context) error {
	dumps, err := doublestar.FilepathGlob(ing.cfg.WikiGlob)
	if err != nil {
		return fmt.Errorf("bad wiki dump glob %q: %w", ing.cfg.WikiGlob, err)
	}
	if len(dumps) == 0 {
		ing.log.Info("no wiki dumps found", "glob", ing.cfg.WikiGlob)
		return nil
	}
	sort.Strings(dumps)

	for _, dump := range dumps {
		if err := ing.ingestDump(ctx, dump); err != nil {
			return err
		}
	}

	return nil
}

func (ing *Ingestor) ingestDump(ctx context.Context, dump string) error {
	ing.log.Info("ingesting dump", "dump", dump)
	base := GuessWikiBase(dump)
	bar := ing.newBar(-1, "wiki:"+filepath.Base(dump))

	pages, chunks := 0, 0
	batch := make([]docstore.Point, 0, flushSize)

	err := StreamPages(dump, func(pg Page) error {
		if !IsArticleTitle(pg.Title) {
			return nil
		}

		// The counter moves before the cap test, so the first page
		// past the limit is counted but not processed.
		pages++
		if ing.cfg.MaxWikiPages > 0 && pages > ing.cfg.MaxWikiPages {
			return errStopStream
		}
		bar.Add(1)

		url := PageURL(base, pg.Title)
		for i, ch := range Chunkify(pg.Text, ing.cfg.ChunkSize, ing.cfg.ChunkOverlap) {
			chunks++
			vec, err := ing.embedder.Embed(ctx, ch)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d of page %q: %w", i, pg.Title, err)
			}

			batch = append(batch, docstore.Point{
				ID:     MakeID("wikipedia", pg.Title, strconv.Itoa(i)),
				Vector: vec,
				Text:   ch,
				Payload: docstore.Payload{
					Source:     "wikipedia",
					DocName:    pg.Title,
					ChunkIndex: i,
					Modality:   "text",
					Snippet:    CleanSnippet(ch, snippetLen),
					URL:        url,
					Title:      pg.Title,
					IsArticle:  true,
				},
			})
			if len(batch) >= flushSize {
				if err := ing.flush(ctx, &batch); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to ingest dump %s: %w", dump, err)
	}

	if err := ing.flush(ctx, &batch); err != nil {
		return err
	}

	ing.log.Info("dump ingested", "dump", dump, "pages", pages, "chunks", chunks)
	return nil
}

// extract dispatches to the first reader that handles the file type.
// Unsupported and unreadable files yield empty text and are skipped.
func (ing *Ingestor) extract(path string) string {
	for _, r := range ing.readers {
		if !r.CanRead(path) {
			continue
		}

		text, err := r.ReadText(path)
		if err != nil {
			ing.log.Warn("failed to read document, skipping", "path", path, "error", err)
			return ""
		}
		return text
	}

	ing.log.Warn("unsupported file, skipping", "path", path)
	return ""
}

func (ing *Ingestor) flush(ctx context.Context, batch *[]docstore.Point) error {
	if len(*batch) == 0 {
		return nil
	}

	if err := ing.store.Upsert(ctx, *batch); err != nil {
		return fmt.Errorf("failed to upsert batch of %d points: %w", len(*batch), err)
	}
	*batch = (*batch)[:0]

	return nil
}

func (ing *Ingestor) newBar(total int, desc string) *progressbar.ProgressBar {
	if !ing.progress {
		return progressbar.DefaultSilent(int64(total), desc)
	}
	return progressbar.Default(int64(total), desc)
}
