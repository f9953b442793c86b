package tools

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
)

const (
	// DocSearchLimit is the number of passages returned by search_financial_docs.
	DocSearchLimit = 3

	NoDocsFound      = "No relevant information found in local documents."
	NoCompanies      = "No companies have been ingested yet."
	companiesPrefix  = "Ingested companies: "
	passageSeparator = "\n\n"
)

// FinancialDocs is the search_financial_docs tool.
type FinancialDocs struct {
	docs DocSearcher
}

func (x *FinancialDocs) Spec() pandora.ToolSpec {
	return pandora.ToolSpec{
		Name:        "search_financial_docs",
		Description: "Fundamental analyst: searches the local 10-K/10-Q filings for risks, debt, strategy and other fundamentals. The optional ticker must be a SINGLE ticker.",
		Parameters: map[string]*pandora.Parameter{
			"query": {
				Type:        pandora.TypeString,
				Description: "What to look for in the filings",
				Required:    true,
			},
			"ticker": {
				Type:        pandora.TypeString,
				Description: "Restrict the search to one company",
			},
		},
	}
}

func (x *FinancialDocs) Run(ctx context.Context, args map[string]any) (string, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return "", goerr.New("query is required")
	}
	ticker := strings.ToUpper(strings.TrimSpace(stringArg(args, "ticker")))

	hits, err := x.docs.Search(ctx, query, DocSearchLimit, ticker)
	if err != nil {
		return "", goerr.Wrap(err, "failed to search documents", goerr.V("query", query), goerr.V("ticker", ticker))
	}
	if len(hits) == 0 {
		return NoDocsFound, nil
	}

	passages := make([]string, len(hits))
	for i, hit := range hits {
		passages[i] = "[Source: " + hit.Filename + "]\n" + hit.Content
	}
	return strings.Join(passages, passageSeparator), nil
}

// Companies is the list_available_companies tool.
type Companies struct {
	corpus CorpusLister
}

func (x *Companies) Spec() pandora.ToolSpec {
	return pandora.ToolSpec{
		Name:        "list_available_companies",
		Description: "Lists the companies whose filings are in the local database.",
	}
}

func (x *Companies) Run(ctx context.Context, args map[string]any) (string, error) {
	tickers, err := x.corpus.ListTickers(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to list companies")
	}
	if len(tickers) == 0 {
		return NoCompanies, nil
	}
	return companiesPrefix + strings.Join(tickers, ", "), nil
}
