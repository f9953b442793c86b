// Package docstore keeps ingested filing chunks with their embeddings in a libSQL database and
// answers semantic searches over them.
package docstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/go-libsql"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	// DefaultListLimit is the number of files returned by ListFiles.
	DefaultListLimit = 20

	embedBatchSize = 32
	timeLayout     = "2006-01-02 15:04:05"
)

// Embedder turns texts into embedding vectors, one per input in input order.
type Embedder interface {
	Embed(ctx context.Context, input []string) ([][]float64, error)
}

// ProcessedFile is a source document that has been ingested.
type ProcessedFile struct {
	ID          int64     `json:"id"`
	Ticker      string    `json:"ticker"`
	DocType     string    `json:"doc_type"`
	Filename    string    `json:"filename"`
	ProcessedAt time.Time `json:"processed_date"`
}

// Chunk is one fragment of a source document.
type Chunk struct {
	ID       string `json:"id"`
	Ticker   string `json:"ticker"`
	DocType  string `json:"doc_type"`
	Filename string `json:"filename"`
	Index    int    `json:"chunk_index"`
	Content  string `json:"content"`
}

// Hit is a search result.
type Hit struct {
	Chunk
	Score float64 `json:"score"`
}

// Store is a libSQL backed document store. It is safe for concurrent use.
type Store struct {
	db       *sql.DB
	embedder Embedder
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the clock used for processed_date.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open connects to dsn (e.g. "file:./data/pandora.db") and applies pending migrations.
func Open(ctx context.Context, dsn string, embedder Embedder, options ...Option) (*Store, error) {
	eb := goerr.NewBuilder(goerr.V("dsn", dsn))

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, eb.Wrap(err, "failed to open database")
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, eb.Wrap(err, "failed to migrate database")
	}

	s := &Store{
		db:       db,
		embedder: embedder,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return goerr.Wrap(err, "failed to open migrations")
	}

	provider, err := goose.NewProvider(goose.DialectTurso, db, fsys)
	if err != nil {
		return goerr.Wrap(err, "failed to create goose provider")
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to run migrations")
	}

	logger := pandora.LoggerFromContext(ctx)
	for _, r := range results {
		logger.Debug("migration applied", "source", r.Source.Path, "duration", r.Duration)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database")
	}
	return nil
}

// IsProcessed reports whether filename of ticker has been ingested.
func (s *Store) IsProcessed(ctx context.Context, ticker, filename string) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM processed_docs WHERE ticker = ? AND filename = ?",
		normalizeTicker(ticker), filename,
	).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, goerr.Wrap(err, "failed to query processed_docs",
			goerr.V("ticker", ticker),
			goerr.V("filename", filename))
	}
	return true, nil
}

// RecordProcessed marks filename as ingested.
func (s *Store) RecordProcessed(ctx context.Context, ticker, docType, filename string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_docs (ticker, doc_type, filename, processed_date) VALUES (?, ?, ?, ?)",
		normalizeTicker(ticker), docType, filename, s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to insert processed_docs",
			goerr.V("ticker", ticker),
			goerr.V("filename", filename))
	}
	return nil
}

// AddChunks embeds and stores chunks in a single transaction.
func (s *Store) AddChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	vectors := make([][]float64, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		vecs, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return goerr.Wrap(err, "failed to embed chunks", goerr.V("offset", start))
		}
		if len(vecs) != len(texts) {
			return goerr.New("embedding count mismatch",
				goerr.V("expected", len(texts)),
				goerr.V("actual", len(vecs)))
		}
		vectors = append(vectors, vecs...)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for i, c := range chunks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO doc_chunks (id, ticker, doc_type, filename, chunk_index, content, embedding)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, normalizeTicker(c.Ticker), c.DocType, c.Filename, c.Index, c.Content, encodeVector(vectors[i]),
		)
		if err != nil {
			return goerr.Wrap(err, "failed to insert chunk", goerr.V("id", c.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit chunks")
	}
	return nil
}

// ListFiles returns the most recently processed files, newest first.
func (s *Store) ListFiles(ctx context.Context, limit int) ([]*ProcessedFile, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, ticker, doc_type, filename, processed_date FROM processed_docs ORDER BY processed_date DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query processed_docs")
	}
	defer rows.Close()

	var files []*ProcessedFile
	for rows.Next() {
		var f ProcessedFile
		var processed string
		if err := rows.Scan(&f.ID, &f.Ticker, &f.DocType, &f.Filename, &processed); err != nil {
			return nil, goerr.Wrap(err, "failed to scan processed_docs")
		}
		f.ProcessedAt = parseTime(processed)
		files = append(files, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate processed_docs")
	}
	return files, nil
}

// ListTickers returns distinct ingested tickers sorted alphabetically.
func (s *Store) ListTickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT ticker FROM processed_docs ORDER BY ticker")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query tickers")
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, goerr.Wrap(err, "failed to scan ticker")
		}
		tickers = append(tickers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate tickers")
	}
	return tickers, nil
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// parseTime accepts both the layout written by RecordProcessed and RFC 3339, which some
// drivers return for TIMESTAMP columns.
func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
