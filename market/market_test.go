package market_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pandora/market"
)

const quoteBody = `{"chart":{"result":[{"meta":{
  "symbol":"AAPL","longName":"Apple Inc.","currency":"USD","fullExchangeName":"NasdaqGS",
  "regularMarketPrice":190.0,"regularMarketTime":1717000000,"chartPreviousClose":180.0,
  "fiftyTwoWeekLow":164.08,"fiftyTwoWeekHigh":199.62}}],"error":null}}`

const historyBody = `{"chart":{"result":[{"meta":{"symbol":"AAPL"},
  "timestamp":[1704205800,1704292200,1704378600],
  "indicators":{"quote":[{
    "open":[187.15,null,182.15],
    "high":[188.44,null,183.09],
    "low":[183.89,null,180.88],
    "close":[185.64,null,181.91],
    "volume":[82488700,null,71983600]}]}}],"error":null}}`

const notFoundBody = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

const searchBody = `{"news":[
  {"uuid":"1","title":"Apple unveils new chips","publisher":"Reuters","link":"https://example.com/1","providerPublishTime":1717000000},
  {"uuid":"2","title":"Apple earnings beat","publisher":"Bloomberg","link":"https://example.com/2","providerPublishTime":1716900000}
]}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/AAPL", func(w http.ResponseWriter, r *http.Request) {
		gt.NotEqual(t, r.Header.Get("User-Agent"), "")
		gt.Equal(t, r.URL.Query().Get("interval"), "1d")
		if r.URL.Query().Get("range") == "1d" {
			_, _ = w.Write([]byte(quoteBody))
			return
		}
		gt.NotEqual(t, r.URL.Query().Get("period1"), "")
		_, _ = w.Write([]byte(historyBody))
	})
	mux.HandleFunc("/v8/finance/chart/ZZZZ", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(notFoundBody))
	})
	mux.HandleFunc("/v8/finance/chart/DELISTED", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(notFoundBody))
	})
	mux.HandleFunc("/v8/finance/chart/BROKEN", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/v1/finance/search", func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Query().Get("q"), "AAPL")
		_, _ = w.Write([]byte(searchBody))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestQuote(t *testing.T) {
	srv := newServer(t)
	client := market.New(market.WithBaseURL(srv.URL))

	q, err := client.Quote(context.Background(), "aapl")
	gt.NoError(t, err)
	gt.Equal(t, q.Symbol, "AAPL")
	gt.Equal(t, q.Name, "Apple Inc.")
	gt.Equal(t, q.Currency, "USD")
	gt.Equal(t, q.Price, 190.0)
	gt.Equal(t, q.PreviousClose, 180.0)
	gt.Equal(t, q.Change, 10.0)
	gt.True(t, q.ChangePercent > 5.55 && q.ChangePercent < 5.56)
	gt.Equal(t, *q.FiftyTwoWeekLow, 164.08)
	gt.Equal(t, *q.FiftyTwoWeekHigh, 199.62)
}

func TestQuoteNotFound(t *testing.T) {
	srv := newServer(t)
	client := market.New(market.WithBaseURL(srv.URL))

	for _, ticker := range []string{"ZZZZ", "DELISTED"} {
		_, err := client.Quote(context.Background(), ticker)
		gt.True(t, errors.Is(err, market.ErrTickerNotFound))
	}

	_, err := client.Quote(context.Background(), "BROKEN")
	gt.Error(t, err)
	gt.False(t, errors.Is(err, market.ErrTickerNotFound))
}

func TestHistory(t *testing.T) {
	srv := newServer(t)
	client := market.New(market.WithBaseURL(srv.URL))

	bars, err := client.History(context.Background(), "AAPL", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	gt.NoError(t, err)
	gt.A(t, bars).Length(2)
	gt.Equal(t, bars[0].Close, 185.64)
	gt.Equal(t, bars[0].Volume, int64(82488700))
	gt.Equal(t, bars[1].Date, time.Unix(1704378600, 0).UTC())
}

func TestNews(t *testing.T) {
	srv := newServer(t)
	client := market.New(market.WithBaseURL(srv.URL))

	items, err := client.News(context.Background(), "AAPL", 1)
	gt.NoError(t, err)
	gt.A(t, items).Length(1)
	gt.Equal(t, items[0].Title, "Apple unveils new chips")
	gt.Equal(t, items[0].Publisher, "Reuters")
	gt.Equal(t, items[0].PublishedAt, time.Unix(1717000000, 0).UTC())
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := market.New(
		market.WithBaseURL(srv.URL),
		market.WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}),
	)
	_, err := client.Quote(context.Background(), "AAPL")
	gt.Error(t, err)
}
