package trace_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pandora/trace"
)

func TestFileRepositorySave(t *testing.T) {
	dir := t.TempDir()
	repo := trace.NewFileRepository(dir)

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := &trace.Trace{
		TraceID:   "test-file-repo",
		Query:     "price of AAPL",
		RootSpan:  &trace.Span{SpanID: "root", Kind: trace.SpanKindRun, Name: "run", Status: trace.SpanStatusOK},
		StartedAt: started,
		EndedAt:   started.Add(time.Second),
	}

	gt.NoError(t, repo.Save(context.Background(), tr))

	path := filepath.Join(dir, "2024-03-01", "test-file-repo.json")
	gt.Equal(t, repo.Path(tr), path)

	data, err := os.ReadFile(path)
	gt.NoError(t, err)

	var loaded trace.Trace
	gt.NoError(t, json.Unmarshal(data, &loaded))
	gt.Equal(t, loaded.TraceID, "test-file-repo")
	gt.Equal(t, loaded.Query, "price of AAPL")
	gt.Equal(t, loaded.RootSpan.Kind, trace.SpanKindRun)
}

func TestRecorderFinishSavesTrace(t *testing.T) {
	dir := t.TempDir()
	repo := trace.NewFileRepository(dir)
	rec := trace.New(trace.WithRepository(repo))

	ctx := rec.StartRun(context.Background(), "q")
	rec.EndRun(ctx, "answer", nil)
	gt.NoError(t, rec.Finish(ctx))

	_, err := os.Stat(repo.Path(trace.TraceFrom(ctx)))
	gt.NoError(t, err)
}

func TestFileRepositoryListAndLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := trace.NewFileRepository(dir)

	list, err := repo.List(ctx, 10)
	gt.NoError(t, err)
	gt.A(t, list).Length(0)

	day1 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	for _, tr := range []*trace.Trace{
		{TraceID: "0190a000-0000-7000-8000-000000000001", Query: "first", StartedAt: day1},
		{TraceID: "0190a000-0000-7000-8000-000000000002", Query: "second", StartedAt: day2},
		{TraceID: "0190a000-0000-7000-8000-000000000003", Query: "third", StartedAt: day2},
	} {
		gt.NoError(t, repo.Save(ctx, tr))
	}

	list, err = repo.List(ctx, 2)
	gt.NoError(t, err)
	gt.A(t, list).Length(2)
	gt.Equal(t, list[0].TraceID, "0190a000-0000-7000-8000-000000000003")
	gt.Equal(t, list[1].TraceID, "0190a000-0000-7000-8000-000000000002")
	gt.True(t, list[0].Size > 0)

	loaded, err := repo.Load(ctx, "0190a000-0000-7000-8000-000000000001")
	gt.NoError(t, err)
	gt.Equal(t, loaded.Query, "first")

	_, err = repo.Load(ctx, "missing")
	gt.True(t, errors.Is(err, trace.ErrTraceNotFound))

	_, err = repo.Load(ctx, "../etc/passwd")
	gt.True(t, errors.Is(err, trace.ErrTraceNotFound))
}

func TestFileRepositoryListMissingDir(t *testing.T) {
	repo := trace.NewFileRepository(filepath.Join(t.TempDir(), "nope"))
	list, err := repo.List(context.Background(), 0)
	gt.NoError(t, err)
	gt.A(t, list).Length(0)
}
