package tools

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
)

// MarketData is the get_market_data tool.
type MarketData struct {
	quotes QuoteProvider
}

func (x *MarketData) Spec() pandora.ToolSpec {
	return pandora.ToolSpec{
		Name:        "get_market_data",
		Description: "Technical analyst: gets the current price, daily change and 52-week range of a stock. Input must be a SINGLE ticker (e.g. 'AAPL'). For multiple stocks, call this tool multiple times.",
		Parameters: map[string]*pandora.Parameter{
			"ticker": {
				Type:        pandora.TypeString,
				Description: "Stock ticker symbol, e.g. AAPL",
				Required:    true,
			},
		},
	}
}

type marketDataResult struct {
	Price             float64 `json:"price"`
	PercentChange     float64 `json:"percent_change"`
	FiftyTwoWeekRange string  `json:"fifty_two_week_range"`
	Currency          string  `json:"currency"`
}

func (x *MarketData) Run(ctx context.Context, args map[string]any) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(stringArg(args, "ticker")))
	if ticker == "" {
		return "", goerr.New("ticker is required")
	}

	quote, err := x.quotes.Quote(ctx, ticker)
	if err != nil {
		return "", goerr.Wrap(err, "failed to get quote", goerr.V("ticker", ticker))
	}

	rangeText := "N/A"
	if quote.FiftyTwoWeekLow != nil && quote.FiftyTwoWeekHigh != nil {
		rangeText = formatFloat(*quote.FiftyTwoWeekLow) + " - " + formatFloat(*quote.FiftyTwoWeekHigh)
	}

	raw, err := json.Marshal(marketDataResult{
		Price:             quote.Price,
		PercentChange:     quote.ChangePercent,
		FiftyTwoWeekRange: rangeText,
		Currency:          quote.Currency,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal market data")
	}
	return string(raw), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
