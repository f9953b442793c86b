package pandora_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pandora"
	"github.com/m-mizutani/pandora/mock"
)

func quoteSpec() pandora.ToolSpec {
	return pandora.ToolSpec{
		Name: "get_market_data",
		Parameters: map[string]*pandora.Parameter{
			"ticker": {Type: pandora.TypeString, Required: true},
			"days":   {Type: pandora.TypeInteger, Minimum: ptr(1.0)},
		},
	}
}

func newExecutor(t *testing.T, run pandora.ToolFunc, opts ...pandora.ExecutorOption) *pandora.Executor {
	t.Helper()
	registry, err := pandora.NewRegistry(pandora.NewTool(quoteSpec(), run))
	gt.NoError(t, err)
	executor, err := pandora.NewExecutor(registry, opts...)
	gt.NoError(t, err)
	return executor
}

func TestExecutorExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		x := newExecutor(t, func(ctx context.Context, args map[string]any) (string, error) {
			return "price of " + args["ticker"].(string), nil
		})
		result := x.Execute(ctx, "get_market_data", map[string]any{"ticker": "AAPL"})
		gt.Equal(t, result, pandora.ToolResult{Text: "price of AAPL"})
	})

	t.Run("not found", func(t *testing.T) {
		x := newExecutor(t, nil)
		result := x.Execute(ctx, "get_weather", nil)
		gt.True(t, result.Failed)
		gt.Equal(t, result.Text, "Error: tool not found: get_weather")
	})

	t.Run("tool error", func(t *testing.T) {
		x := newExecutor(t, func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("ticker not found")
		})
		result := x.Execute(ctx, "get_market_data", map[string]any{"ticker": "ZZZZ"})
		gt.True(t, result.Failed)
		gt.Equal(t, result.Text, "Error: get_market_data failed: ticker not found")
	})

	t.Run("panic", func(t *testing.T) {
		x := newExecutor(t, func(ctx context.Context, args map[string]any) (string, error) {
			var m map[string]int
			m["x"] = 1
			return "", nil
		})
		result := x.Execute(ctx, "get_market_data", nil)
		gt.True(t, result.Failed)
		gt.S(t, result.Text).Contains("Error: get_market_data panicked: ")
	})

	t.Run("nil args become empty map", func(t *testing.T) {
		x := newExecutor(t, func(ctx context.Context, args map[string]any) (string, error) {
			gt.NotNil(t, args)
			return "ok", nil
		})
		gt.Equal(t, x.Execute(ctx, "get_market_data", nil).Text, "ok")
	})

	t.Run("timeout", func(t *testing.T) {
		x := newExecutor(t, func(ctx context.Context, args map[string]any) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}, pandora.WithToolTimeout(10*time.Millisecond))
		result := x.Execute(ctx, "get_market_data", nil)
		gt.True(t, result.Failed)
		gt.S(t, result.Text).Contains("deadline exceeded")
	})
}

func TestExecutorArgumentValidation(t *testing.T) {
	ctx := context.Background()
	var called int
	x := newExecutor(t, func(ctx context.Context, args map[string]any) (string, error) {
		called++
		return "ok", nil
	}, pandora.WithArgumentValidation(true))

	result := x.Execute(ctx, "get_market_data", map[string]any{})
	gt.True(t, result.Failed)
	gt.S(t, result.Text).Contains("Error: invalid arguments for get_market_data")

	result = x.Execute(ctx, "get_market_data", map[string]any{"ticker": 42})
	gt.True(t, result.Failed)

	result = x.Execute(ctx, "get_market_data", map[string]any{"ticker": "AAPL", "days": 0})
	gt.True(t, result.Failed)

	result = x.Execute(ctx, "get_market_data", map[string]any{"ticker": "AAPL", "days": 5})
	gt.False(t, result.Failed)
	gt.Equal(t, called, 1)
}

func TestExecutorCache(t *testing.T) {
	ctx := context.Background()
	store := map[string]string{}
	cache := &mock.ToolCacheMock{
		GetFunc: func(ctx context.Context, key string) (string, bool, error) {
			v, ok := store[key]
			return v, ok, nil
		},
		SetFunc: func(ctx context.Context, key string, value string, ttl time.Duration) error {
			store[key] = value
			return nil
		},
	}

	var called int
	x := newExecutor(t, func(ctx context.Context, args map[string]any) (string, error) {
		called++
		if args["ticker"] == "FAIL" {
			return "", errors.New("boom")
		}
		return "quote", nil
	}, pandora.WithToolCache(cache, time.Minute))

	first := x.Execute(ctx, "get_market_data", map[string]any{"ticker": "AAPL"})
	gt.False(t, first.Cached)
	second := x.Execute(ctx, "get_market_data", map[string]any{"ticker": "AAPL"})
	gt.True(t, second.Cached)
	gt.Equal(t, second.Text, "quote")
	gt.Equal(t, called, 1)

	other := x.Execute(ctx, "get_market_data", map[string]any{"ticker": "MSFT"})
	gt.False(t, other.Cached)
	gt.Equal(t, called, 2)

	// failures are not cached
	x.Execute(ctx, "get_market_data", map[string]any{"ticker": "FAIL"})
	x.Execute(ctx, "get_market_data", map[string]any{"ticker": "FAIL"})
	gt.Equal(t, called, 4)
	gt.A(t, cache.SetCalls()).Length(2)
	gt.Equal(t, cache.SetCalls()[0].TTL, time.Minute)
}

func TestExecutorCacheErrorsAreIgnored(t *testing.T) {
	cache := &mock.ToolCacheMock{
		GetFunc: func(ctx context.Context, key string) (string, bool, error) {
			return "", false, errors.New("redis down")
		},
		SetFunc: func(ctx context.Context, key string, value string, ttl time.Duration) error {
			return errors.New("redis down")
		},
	}
	x := newExecutor(t, func(ctx context.Context, args map[string]any) (string, error) {
		return "quote", nil
	}, pandora.WithToolCache(cache, time.Minute))

	result := x.Execute(context.Background(), "get_market_data", map[string]any{"ticker": "AAPL"})
	gt.Equal(t, result, pandora.ToolResult{Text: "quote"})
}
