package tools

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
)

const (
	// NewsLimit is the number of headlines returned by search_news.
	NewsLimit = 5

	NoNewsFound = "No recent news found."
)

// News is the search_news tool.
type News struct {
	news NewsProvider
}

func (x *News) Spec() pandora.ToolSpec {
	return pandora.ToolSpec{
		Name:        "search_news",
		Description: "News analyst: searches recent headlines for events and sentiment. Input must be a SINGLE ticker.",
		Parameters: map[string]*pandora.Parameter{
			"ticker": {
				Type:        pandora.TypeString,
				Description: "Stock ticker symbol, e.g. AAPL",
				Required:    true,
			},
		},
	}
}

func (x *News) Run(ctx context.Context, args map[string]any) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(stringArg(args, "ticker")))
	if ticker == "" {
		return "", goerr.New("ticker is required")
	}

	items, err := x.news.News(ctx, ticker, NewsLimit)
	if err != nil {
		return "", goerr.Wrap(err, "failed to get news", goerr.V("ticker", ticker))
	}
	if len(items) == 0 {
		return NoNewsFound, nil
	}
	if len(items) > NewsLimit {
		items = items[:NewsLimit]
	}

	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- [" + item.PublishedAt.UTC().Format("2006-01-02") + "] " + item.Title + " (" + item.Publisher + ")"
	}
	return strings.Join(lines, "\n"), nil
}
