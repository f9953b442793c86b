package market

import (
	"strconv"
	"time"
)

type chartResponse struct {
	Chart struct {
		Result []*chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Symbol             string   `json:"symbol"`
	ShortName          string   `json:"shortName"`
	LongName           string   `json:"longName"`
	Currency           string   `json:"currency"`
	ExchangeName       string   `json:"fullExchangeName"`
	RegularMarketPrice float64  `json:"regularMarketPrice"`
	RegularMarketTime  int64    `json:"regularMarketTime"`
	ChartPreviousClose float64  `json:"chartPreviousClose"`
	PreviousClose      float64  `json:"previousClose"`
	FiftyTwoWeekLow    *float64 `json:"fiftyTwoWeekLow"`
	FiftyTwoWeekHigh   *float64 `json:"fiftyTwoWeekHigh"`
}

type searchResponse struct {
	News []struct {
		UUID                string `json:"uuid"`
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

func (m chartMeta) toQuote() *Quote {
	prev := m.PreviousClose
	if prev == 0 {
		prev = m.ChartPreviousClose
	}

	q := &Quote{
		Symbol:           m.Symbol,
		Name:             m.LongName,
		Exchange:         m.ExchangeName,
		Currency:         m.Currency,
		Price:            m.RegularMarketPrice,
		PreviousClose:    prev,
		FiftyTwoWeekLow:  m.FiftyTwoWeekLow,
		FiftyTwoWeekHigh: m.FiftyTwoWeekHigh,
		MarketTime:       time.Unix(m.RegularMarketTime, 0).UTC(),
	}
	if q.Name == "" {
		q.Name = m.ShortName
	}
	if prev != 0 {
		q.Change = m.RegularMarketPrice - prev
		q.ChangePercent = q.Change / prev * 100
	}
	return q
}

// bars skips entries where Yahoo reports no close price (e.g. trading halts).
func (r *chartResult) bars() []*Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	ind := r.Indicators.Quote[0]

	bars := make([]*Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closePrice := at(ind.Close, i)
		if closePrice == nil {
			continue
		}
		bar := &Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *closePrice,
		}
		if v := at(ind.Open, i); v != nil {
			bar.Open = *v
		}
		if v := at(ind.High, i); v != nil {
			bar.High = *v
		}
		if v := at(ind.Low, i); v != nil {
			bar.Low = *v
		}
		if v := at(ind.Volume, i); v != nil {
			bar.Volume = *v
		}
		bars = append(bars, bar)
	}
	return bars
}

func at[T any](s []*T, i int) *T {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func formatUnix(t time.Time) string { return strconv.FormatInt(t.Unix(), 10) }

func formatInt(n int) string { return strconv.Itoa(n) }
