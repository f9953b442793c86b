package pandora_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pandora"
)

func TestRegistry(t *testing.T) {
	run := func(ctx context.Context, args map[string]any) (string, error) { return "", nil }

	t.Run("register and resolve", func(t *testing.T) {
		registry, err := pandora.NewRegistry(
			pandora.NewTool(pandora.ToolSpec{Name: "search_news"}, run),
			pandora.NewTool(pandora.ToolSpec{Name: "get_market_data"}, run),
		)
		gt.NoError(t, err)
		gt.Equal(t, registry.Len(), 2)
		gt.Equal(t, registry.Names(), []string{"get_market_data", "search_news"})

		tool, ok := registry.Resolve("search_news")
		gt.True(t, ok)
		gt.Equal(t, tool.Spec().Name, "search_news")

		_, ok = registry.Resolve("unknown")
		gt.False(t, ok)

		specs := registry.Specs()
		gt.A(t, specs).Length(2)
		gt.Equal(t, specs[0].Name, "get_market_data")
	})

	t.Run("duplicated name", func(t *testing.T) {
		_, err := pandora.NewRegistry(
			pandora.NewTool(pandora.ToolSpec{Name: "dup"}, run),
			pandora.NewTool(pandora.ToolSpec{Name: "dup"}, run),
		)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, pandora.ErrToolNameConflict))
	})

	t.Run("invalid spec", func(t *testing.T) {
		registry, err := pandora.NewRegistry()
		gt.NoError(t, err)

		err = registry.Register(pandora.NewTool(pandora.ToolSpec{Name: "bad name"}, run))
		gt.True(t, errors.Is(err, pandora.ErrInvalidTool))

		err = registry.Register(pandora.NewTool(pandora.ToolSpec{
			Name:       "no_type",
			Parameters: map[string]*pandora.Parameter{"x": {}},
		}, run))
		gt.True(t, errors.Is(err, pandora.ErrInvalidParameter))
		gt.Equal(t, registry.Len(), 0)
	})
}
