package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pandora"
	"github.com/m-mizutani/pandora/docstore"
	"github.com/m-mizutani/pandora/market"
	"github.com/m-mizutani/pandora/mock"
	"github.com/m-mizutani/pandora/server"
	"github.com/m-mizutani/pandora/trace"
)

func newAgent(t *testing.T, llm pandora.LLMClient) *pandora.Agent {
	t.Helper()
	quote := pandora.NewTool(pandora.ToolSpec{
		Name:        "get_market_data",
		Description: "Get the latest quote",
		Parameters: map[string]*pandora.Parameter{
			"ticker": {Type: pandora.TypeString, Required: true},
		},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		return `{"price":150}`, nil
	})

	registry, err := pandora.NewRegistry(quote)
	gt.NoError(t, err)
	executor, err := pandora.NewExecutor(registry)
	gt.NoError(t, err)
	return pandora.New(llm, executor)
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		gt.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHealth(t *testing.T) {
	s := server.New(newAgent(t, &mock.LLMClientMock{}))
	w, out := do(t, s.Handler(), http.MethodGet, "/api/health", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, out["status"], any("ok"))
}

func TestChat(t *testing.T) {
	var round int
	llm := &mock.LLMClientMock{
		GenerateFunc: func(ctx context.Context, messages []pandora.Message, tools []pandora.ToolSpec) (pandora.Reply, error) {
			round++
			if round == 1 {
				return pandora.NewReply("", []*pandora.FunctionCall{
					{ID: "call_1", Name: "get_market_data", Arguments: map[string]any{"ticker": "AAPL"}},
				}, pandora.Usage{}), nil
			}
			return pandora.NewReply("AAPL trades at $150.", nil, pandora.Usage{}), nil
		},
	}
	s := server.New(newAgent(t, llm))

	w, out := do(t, s.Handler(), http.MethodPost, "/api/chat", map[string]any{"query": "How is Apple doing?", "ticker": "aapl"})
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, out["answer"], any("AAPL trades at $150."))
	gt.Equal(t, out["sources"], any([]any{}))

	steps := out["steps"].([]any)
	gt.A(t, steps).Length(1)
	step := steps[0].(map[string]any)
	gt.Equal(t, step["tool"], any("get_market_data"))
	gt.Equal(t, step["result"], any(`{"price":150}`))

	// The ticker hint reaches the engine through the system prompt.
	system, ok := llm.GenerateCalls()[0].Messages[0].(pandora.SystemMessage)
	gt.True(t, ok)
	gt.S(t, system.Text).Contains("viewing the screen for AAPL")
}

func TestChatRejectsMissingQuery(t *testing.T) {
	llm := &mock.LLMClientMock{}
	s := server.New(newAgent(t, llm))

	w, out := do(t, s.Handler(), http.MethodPost, "/api/chat", map[string]any{"ticker": "AAPL"})
	gt.Equal(t, w.Code, http.StatusBadRequest)
	gt.Equal(t, out["error"], any("query is required"))

	w, _ = do(t, s.Handler(), http.MethodPost, "/api/chat", map[string]any{"query": "   "})
	gt.Equal(t, w.Code, http.StatusBadRequest)
	gt.A(t, llm.GenerateCalls()).Length(0)
}

type stocks struct {
	quote   func(ctx context.Context, ticker string) (*market.Quote, error)
	history func(ctx context.Context, ticker string, since time.Time) ([]*market.Bar, error)
}

func (s *stocks) Quote(ctx context.Context, ticker string) (*market.Quote, error) {
	return s.quote(ctx, ticker)
}

func (s *stocks) History(ctx context.Context, ticker string, since time.Time) ([]*market.Bar, error) {
	return s.history(ctx, ticker, since)
}

func TestStock(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var gotSince time.Time
	provider := &stocks{
		quote: func(ctx context.Context, ticker string) (*market.Quote, error) {
			if ticker != "AAPL" {
				return nil, market.ErrTickerNotFound
			}
			return &market.Quote{Symbol: "AAPL", Price: 150, Currency: "USD"}, nil
		},
		history: func(ctx context.Context, ticker string, since time.Time) ([]*market.Bar, error) {
			gotSince = since
			if ticker != "AAPL" {
				return nil, market.ErrTickerNotFound
			}
			return []*market.Bar{{Date: now.AddDate(0, 0, -1), Close: 149}}, nil
		},
	}

	s := server.New(newAgent(t, &mock.LLMClientMock{}),
		server.WithStocks(provider),
		server.WithClock(func() time.Time { return now }),
		server.WithHistoryWindow(30*24*time.Hour),
	)

	t.Run("found", func(t *testing.T) {
		w, out := do(t, s.Handler(), http.MethodGet, "/api/stock/aapl", nil)
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, out["quote"].(map[string]any)["price"], any(150.0))
		gt.A(t, out["history"].([]any)).Length(1)
		gt.Equal(t, gotSince, now.Add(-30*24*time.Hour))
	})

	t.Run("not found", func(t *testing.T) {
		w, out := do(t, s.Handler(), http.MethodGet, "/api/stock/zzzz", nil)
		gt.Equal(t, w.Code, http.StatusNotFound)
		gt.S(t, out["error"].(string)).Contains("ZZZZ")
	})

	t.Run("upstream failure", func(t *testing.T) {
		broken := &stocks{
			quote: provider.quote,
			history: func(ctx context.Context, ticker string, since time.Time) ([]*market.Bar, error) {
				return nil, errors.New("upstream returned 503")
			},
		}
		s := server.New(newAgent(t, &mock.LLMClientMock{}), server.WithStocks(broken))
		w, out := do(t, s.Handler(), http.MethodGet, "/api/stock/AAPL", nil)
		gt.Equal(t, w.Code, http.StatusInternalServerError)
		gt.S(t, out["error"].(string)).Contains("503")
	})
}

func TestStockNotConfigured(t *testing.T) {
	s := server.New(newAgent(t, &mock.LLMClientMock{}))
	w, _ := do(t, s.Handler(), http.MethodGet, "/api/stock/AAPL", nil)
	gt.Equal(t, w.Code, http.StatusNotFound)
}

type fileLister func(ctx context.Context, limit int) ([]*docstore.ProcessedFile, error)

func (f fileLister) ListFiles(ctx context.Context, limit int) ([]*docstore.ProcessedFile, error) {
	return f(ctx, limit)
}

func TestFiles(t *testing.T) {
	var gotLimit int
	lister := fileLister(func(ctx context.Context, limit int) ([]*docstore.ProcessedFile, error) {
		gotLimit = limit
		return []*docstore.ProcessedFile{
			{ID: 3, Ticker: "MSFT", DocType: "10-K", Filename: "msft-10k.txt"},
			{ID: 2, Ticker: "AAPL", DocType: "10-Q", Filename: "aapl-10q.txt"},
			{ID: 1, Ticker: "MSFT", DocType: "10-Q", Filename: "msft-10q.txt"},
		}, nil
	})

	s := server.New(newAgent(t, &mock.LLMClientMock{}), server.WithFiles(lister))
	w, out := do(t, s.Handler(), http.MethodGet, "/api/files", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, gotLimit, server.DefaultFileLimit)
	gt.A(t, out["files"].([]any)).Length(3)
	gt.Equal(t, out["tickers"], any([]any{"MSFT", "AAPL"}))

	empty := fileLister(func(ctx context.Context, limit int) ([]*docstore.ProcessedFile, error) {
		return nil, nil
	})
	s = server.New(newAgent(t, &mock.LLMClientMock{}), server.WithFiles(empty))
	w, out = do(t, s.Handler(), http.MethodGet, "/api/files", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, out["files"], any([]any{}))
	gt.Equal(t, out["tickers"], any([]any{}))
}

func TestTraces(t *testing.T) {
	repo := trace.NewFileRepository(t.TempDir())
	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	gt.NoError(t, repo.Save(context.Background(), &trace.Trace{
		TraceID:   "0197299a-0000-7000-8000-000000000001",
		Query:     "How is Apple doing?",
		Answer:    "Fine.",
		StartedAt: started,
		EndedAt:   started.Add(time.Second),
	}))

	s := server.New(newAgent(t, &mock.LLMClientMock{}), server.WithTraces(repo))

	w, out := do(t, s.Handler(), http.MethodGet, "/api/traces", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	traces := out["traces"].([]any)
	gt.A(t, traces).Length(1)
	gt.Equal(t, traces[0].(map[string]any)["trace_id"], any("0197299a-0000-7000-8000-000000000001"))

	w, out = do(t, s.Handler(), http.MethodGet, "/api/traces/0197299a-0000-7000-8000-000000000001", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, out["query"], any("How is Apple doing?"))

	w, _ = do(t, s.Handler(), http.MethodGet, "/api/traces/unknown", nil)
	gt.Equal(t, w.Code, http.StatusNotFound)

	w, _ = do(t, s.Handler(), http.MethodGet, "/api/traces?limit=abc", nil)
	gt.Equal(t, w.Code, http.StatusBadRequest)
}

func TestCORSPreflight(t *testing.T) {
	s := server.New(newAgent(t, &mock.LLMClientMock{}))
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	gt.Equal(t, w.Code, http.StatusNoContent)
	gt.Equal(t, w.Header().Get("Access-Control-Allow-Origin"), "*")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	gt.NoError(t, err)

	s := server.New(newAgent(t, &mock.LLMClientMock{}), server.WithShutdownTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	var resp *http.Response
	for range 50 {
		resp, err = http.Get("http://" + ln.Addr().String() + "/api/health")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	gt.NoError(t, err)
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.NoError(t, resp.Body.Close())

	cancel()
	select {
	case err := <-done:
		gt.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
