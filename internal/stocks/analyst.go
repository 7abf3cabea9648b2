package stocks

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"analysis-suite/internal/llm"
	"analysis-suite/internal/prompt"
	"github.com/rs/zerolog/log"
)

const headlineLimit = 5

// QuoteFetcher fetches market data for a ticker symbol.
type QuoteFetcher interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}

// HeadlineSearcher fetches news snippets for a search query.
type HeadlineSearcher interface {
	Headlines(ctx context.Context, query string, limit int) ([]string, error)
}

// Report is the analyst's output for one ticker.
type Report struct {
	Symbol  string
	Content string
	Quote   *Quote
	Elapsed time.Duration
}

// Analyst combines market data and news headlines into a prompt and
// asks the model for an analysis.
type Analyst struct {
	quotes    QuoteFetcher
	search    HeadlineSearcher
	completer llm.Completer
}

// NewAnalyst creates an analyst with the given collaborators.
func NewAnalyst(quotes QuoteFetcher, search HeadlineSearcher, completer llm.Completer) *Analyst {
	return &Analyst{quotes: quotes, search: search, completer: completer}
}

// Analyze produces a report for the given ticker symbol.
func (a *Analyst) Analyze(ctx context.Context, symbol string) (*Report, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}

	start := time.Now()

	quote, err := a.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}

	// Headlines are best-effort context; the report can stand without
	// them.
	headlines, err := a.search.Headlines(ctx, symbol+" stock news", headlineLimit)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("headline search failed, continuing without news")
		headlines = nil
	}

	content, err := a.completer.Complete(ctx, prompt.Stock(symbol, quote.MarketData(), headlines))
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	return &Report{
		Symbol:  symbol,
		Content: content,
		Quote:   quote,
		Elapsed: time.Since(start),
	}, nil
}

func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("ticker symbol must not be empty")
	}
	for _, r := range symbol {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-' {
			return fmt.Errorf("invalid ticker symbol: %q", symbol)
		}
	}
	return nil
}
