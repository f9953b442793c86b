// Package tools provides the financial tools of the desk: market data, filing search, news
// and the list of ingested companies.
package tools

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	"github.com/m-mizutani/pandora/docstore"
	"github.com/m-mizutani/pandora/market"
)

// QuoteProvider returns the latest quote of a ticker. An unknown ticker yields
// market.ErrTickerNotFound.
type QuoteProvider interface {
	Quote(ctx context.Context, ticker string) (*market.Quote, error)
}

// DocSearcher runs a similarity search over the filing corpus. An empty ticker searches all
// companies.
type DocSearcher interface {
	Search(ctx context.Context, query string, limit int, ticker string) ([]*docstore.Hit, error)
}

// NewsProvider returns recent headlines of a ticker.
type NewsProvider interface {
	News(ctx context.Context, ticker string, limit int) ([]*market.NewsItem, error)
}

// CorpusLister returns the tickers present in the filing corpus.
type CorpusLister interface {
	ListTickers(ctx context.Context) ([]string, error)
}

// Deps are the collaborators of the default tool set. A nil collaborator drops the tools that
// need it.
type Deps struct {
	Quotes QuoteProvider
	Docs   DocSearcher
	News   NewsProvider
	Corpus CorpusLister
}

// Tools builds the tools whose collaborators are set.
func (d Deps) Tools() []pandora.Tool {
	var tools []pandora.Tool
	if d.Quotes != nil {
		tools = append(tools, &MarketData{quotes: d.Quotes})
	}
	if d.Docs != nil {
		tools = append(tools, &FinancialDocs{docs: d.Docs})
	}
	if d.News != nil {
		tools = append(tools, &News{news: d.News})
	}
	if d.Corpus != nil {
		tools = append(tools, &Companies{corpus: d.Corpus})
	}
	return tools
}

// New builds a registry holding the default tool set plus extra tools, e.g. tools imported
// over MCP.
func New(deps Deps, extra ...pandora.Tool) (*pandora.Registry, error) {
	registry, err := pandora.NewRegistry(append(deps.Tools(), extra...)...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build tool registry")
	}
	return registry, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}
