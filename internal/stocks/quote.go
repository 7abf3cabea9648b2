package stocks

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

const quoteApiBaseUrl = "https://query1.finance.yahoo.com"

// Quote is a snapshot of a ticker's market data.
type Quote struct {
	Symbol        string
	Name          string
	Currency      string
	Price         float64
	PreviousClose float64
	DayHigh       float64
	DayLow        float64
	YearHigh      float64
	YearLow       float64
	Volume        int64
}

// MarketData formats the quote as plain lines for the analyst prompt.
func (q *Quote) MarketData() string {
	name := q.Name
	if name == "" {
		name = q.Symbol
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", name, q.Symbol)
	fmt.Fprintf(&b, "Price: %.2f %s (previous close %.2f)\n", q.Price, q.Currency, q.PreviousClose)
	fmt.Fprintf(&b, "Day range: %.2f - %.2f\n", q.DayLow, q.DayHigh)
	fmt.Fprintf(&b, "52 week range: %.2f - %.2f\n", q.YearLow, q.YearHigh)
	fmt.Fprintf(&b, "Volume: %d", q.Volume)
	return b.String()
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency             string  `json:"currency"`
				Symbol               string  `json:"symbol"`
				LongName             string  `json:"longName"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				ChartPreviousClose   float64 `json:"chartPreviousClose"`
				RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
				RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
				FiftyTwoWeekHigh     float64 `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow      float64 `json:"fiftyTwoWeekLow"`
				RegularMarketVolume  int64   `json:"regularMarketVolume"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type QuoteClientOpts struct {
	BaseURL string
}

// QuoteClient fetches market data from Yahoo Finance's chart API.
type QuoteClient struct {
	httpClient *resty.Client
	baseURL    string
}

func NewQuoteClient(opts QuoteClientOpts) *QuoteClient {
	c := QuoteClient{baseURL: quoteApiBaseUrl}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	c.httpClient = resty.New().
		SetBaseURL(c.baseURL).
		SetHeaders(map[string]string{
			"Accept":     "application/json",
			"User-Agent": "Mozilla/5.0 (compatible; analysis-suite/1.0)",
		})
	return &c
}

// GetQuote fetches the current quote for a ticker symbol.
func (c *QuoteClient) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	var result chartResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    "5d",
		}).
		Get("/v8/finance/chart/" + url.PathEscape(symbol))
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("quote request failed with status %d", resp.StatusCode())
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("quote lookup failed for %s: %s", symbol, result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("no quote data for %s", symbol)
	}

	meta := result.Chart.Result[0].Meta
	return &Quote{
		Symbol:        meta.Symbol,
		Name:          meta.LongName,
		Currency:      meta.Currency,
		Price:         meta.RegularMarketPrice,
		PreviousClose: meta.ChartPreviousClose,
		DayHigh:       meta.RegularMarketDayHigh,
		DayLow:        meta.RegularMarketDayLow,
		YearHigh:      meta.FiftyTwoWeekHigh,
		YearLow:       meta.FiftyTwoWeekLow,
		Volume:        meta.RegularMarketVolume,
	}, nil
}
