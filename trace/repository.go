package trace

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// ErrTraceNotFound is returned by Load for an unknown trace ID.
var ErrTraceNotFound = errors.New("trace not found")

// Repository persists finished traces.
type Repository interface {
	Save(ctx context.Context, trace *Trace) error
}

// FileRepository writes each trace to {dir}/{YYYY-MM-DD}/{trace_id}.json, grouped by the day
// the run started.
type FileRepository struct {
	dir string
}

func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Path returns the file path Save uses for t.
func (r *FileRepository) Path(t *Trace) string {
	return filepath.Join(r.dir, t.StartedAt.UTC().Format("2006-01-02"), t.TraceID+".json")
}

func (r *FileRepository) Save(_ context.Context, t *Trace) error {
	path := r.Path(t)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return goerr.Wrap(err, "failed to create trace directory", goerr.V("path", path))
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal trace", goerr.V("trace_id", t.TraceID))
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return goerr.Wrap(err, "failed to write trace file", goerr.V("path", path))
	}
	return nil
}

// Summary describes a stored trace without reading its contents.
type Summary struct {
	TraceID   string    `json:"trace_id"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// List returns stored traces, newest first, at most limit entries. A missing directory yields
// no traces.
func (r *FileRepository) List(_ context.Context, limit int) ([]Summary, error) {
	var summaries []Summary
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		summaries = append(summaries, Summary{
			TraceID:   strings.TrimSuffix(d.Name(), ".json"),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list traces", goerr.V("dir", r.dir))
	}

	// trace IDs are UUIDv7, so descending ID order is newest first
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].TraceID > summaries[j].TraceID
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// Load reads the trace saved under traceID.
func (r *FileRepository) Load(_ context.Context, traceID string) (*Trace, error) {
	if traceID == "" || strings.ContainsAny(traceID, `/\.`) {
		return nil, goerr.Wrap(ErrTraceNotFound, "invalid trace ID", goerr.V("trace_id", traceID))
	}

	matches, err := filepath.Glob(filepath.Join(r.dir, "*", traceID+".json"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search trace", goerr.V("trace_id", traceID))
	}
	if len(matches) == 0 {
		return nil, goerr.Wrap(ErrTraceNotFound, "trace file does not exist", goerr.V("trace_id", traceID))
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read trace file", goerr.V("path", matches[0]))
	}

	var t Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, goerr.Wrap(err, "failed to parse trace file", goerr.V("path", matches[0]))
	}
	return &t, nil
}
