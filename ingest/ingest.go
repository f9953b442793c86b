// Package ingest loads SEC filings from a download tree into the document store.
//
// The expected layout is <root>/<ticker>/<doc type>/<accession>/<file>, the same layout
// produced by sec-edgar-downloader.
package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	"github.com/m-mizutani/pandora/docstore"
)

const (
	DefaultChunkSize    = 4000
	DefaultChunkOverlap = 200
)

var supportedExts = map[string]bool{
	".txt":  true,
	".html": true,
	".htm":  true,
	".xml":  true,
}

// Store is the subset of docstore.Store used by the Ingester.
type Store interface {
	IsProcessed(ctx context.Context, ticker, filename string) (bool, error)
	RecordProcessed(ctx context.Context, ticker, docType, filename string) error
	AddChunks(ctx context.Context, chunks []*docstore.Chunk) error
}

// Report summarizes one ingest pass.
type Report struct {
	Processed int
	Skipped   int
	Failed    int
	Chunks    int
}

// Ingester walks a filing tree and stores every new document.
type Ingester struct {
	store        Store
	chunkSize    int
	chunkOverlap int
	settle       time.Duration
	newID        func() string
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithChunking overrides chunk size and overlap, both in characters.
func WithChunking(size, overlap int) Option {
	return func(x *Ingester) {
		x.chunkSize = size
		x.chunkOverlap = overlap
	}
}

// New creates an Ingester.
func New(store Store, options ...Option) *Ingester {
	x := &Ingester{
		store:        store,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		settle:       DefaultSettleDelay,
		newID: func() string {
			return uuid.NewString()[:8]
		},
	}
	for _, opt := range options {
		opt(x)
	}
	return x
}

// Run ingests every supported file under root. A failure on one file is logged and counted;
// the walk continues with the next file.
func (x *Ingester) Run(ctx context.Context, root string) (*Report, error) {
	logger := pandora.LoggerFromContext(ctx)
	report := &Report{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !isSupported(path) {
			return nil
		}

		done, n, err := x.ingestFile(ctx, root, path)
		switch {
		case err != nil:
			report.Failed++
			logger.Warn("failed to ingest file", "path", path, "error", err)
		case !done:
			report.Skipped++
		default:
			report.Processed++
			report.Chunks += n
		}
		return nil
	})
	if err != nil {
		return report, goerr.Wrap(err, "failed to walk filing tree", goerr.V("root", root))
	}

	logger.Info("ingest finished",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"chunks", report.Chunks,
	)
	return report, nil
}

// IngestFile stores a single file located under root. It reports false when the file had
// already been processed.
func (x *Ingester) IngestFile(ctx context.Context, root, path string) (bool, error) {
	done, _, err := x.ingestFile(ctx, root, path)
	return done, err
}

func (x *Ingester) ingestFile(ctx context.Context, root, path string) (bool, int, error) {
	logger := pandora.LoggerFromContext(ctx)
	ticker, docType := classify(root, path)
	filename := filepath.Base(path)
	eb := goerr.NewBuilder(goerr.V("path", path), goerr.V("ticker", ticker))

	processed, err := x.store.IsProcessed(ctx, ticker, filename)
	if err != nil {
		return false, 0, eb.Wrap(err, "failed to check processed state")
	}
	if processed {
		logger.Debug("skip processed file", "ticker", ticker, "filename", filename)
		return false, 0, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return false, 0, eb.Wrap(err, "failed to read file")
	}

	texts := Chunk(CleanSECText(strings.ToValidUTF8(string(raw), "")), x.chunkSize, x.chunkOverlap)
	if len(texts) == 0 {
		logger.Warn("no content left after cleaning", "path", path)
		return false, 0, nil
	}

	chunks := make([]*docstore.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &docstore.Chunk{
			ID:       ticker + "_" + docType + "_" + x.newID(),
			Ticker:   ticker,
			DocType:  docType,
			Filename: filename,
			Index:    i,
			Content:  text,
		}
	}

	if err := x.store.AddChunks(ctx, chunks); err != nil {
		return false, 0, eb.Wrap(err, "failed to store chunks")
	}
	if err := x.store.RecordProcessed(ctx, ticker, docType, filename); err != nil {
		return false, 0, eb.Wrap(err, "failed to record processed file")
	}

	logger.Info("file ingested", "ticker", ticker, "doc_type", docType, "filename", filename, "chunks", len(chunks))
	return true, len(chunks), nil
}

// classify derives ticker and document type from <ticker>/<doc type>/<accession>/<file>.
func classify(root, path string) (ticker, docType string) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 4 {
		return "UNKNOWN", "DOC"
	}
	n := len(parts)
	return strings.ToUpper(parts[n-4]), parts[n-3]
}
