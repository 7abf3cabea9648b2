package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"analysis-suite/internal/config"
	"analysis-suite/internal/llm"
	"analysis-suite/internal/stocks"
	"analysis-suite/internal/storage"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	flagModel   string
	flagTimeout time.Duration
	flagQuiet   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stock-analyst [symbol]",
		Short: "AI-powered stock analysis from market data and news",
		Long: "stock-analyst fetches a quote and recent headlines for a ticker symbol\n" +
			"and asks a Groq-hosted model for an analyst-style report.",
		Args:          cobra.ExactArgs(1),
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringVar(&flagModel, "model", "", "override the Groq model")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 2*time.Minute, "overall request timeout")
	rootCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress log output")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if flagQuiet {
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}

	config.LoadEnvFile()

	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("GROQ_API_KEY is not set")
	}

	completer, err := llm.NewGroqClient(llm.GroqOpts{APIKey: apiKey, Model: flagModel})
	if err != nil {
		return err
	}

	analyst := stocks.NewAnalyst(
		stocks.NewQuoteClient(stocks.QuoteClientOpts{}),
		stocks.NewSearchClient(stocks.SearchClientOpts{}),
		completer,
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	report, err := analyst.Analyze(ctx, args[0])
	if err != nil {
		return err
	}

	printReport(report)
	recordHistory(report)
	return nil
}

func printReport(report *stocks.Report) {
	header := color.New(color.FgCyan, color.Bold)
	header.Printf("\n%s", report.Symbol)
	if report.Quote.Name != "" {
		header.Printf(" — %s", report.Quote.Name)
	}
	fmt.Println()
	color.New(color.FgYellow).Printf("%.2f %s\n\n", report.Quote.Price, report.Quote.Currency)

	fmt.Println(report.Content)

	color.New(color.Faint).Printf("\nGenerated in %.1fs\n", report.Elapsed.Seconds())
}

// recordHistory appends the report to the shared analysis history when
// ANALYSIS_DB_PATH points at the service's database.
func recordHistory(report *stocks.Report) {
	dbPath := os.Getenv("ANALYSIS_DB_PATH")
	if dbPath == "" {
		return
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		log.Warn().Err(err).Msg("failed to open analysis store")
		return
	}
	defer store.Close()

	rec := &storage.AnalysisRecord{
		Kind:     "stock",
		Subject:  report.Symbol,
		Query:    "stock analysis",
		Content:  report.Content,
		Success:  true,
		Duration: report.Elapsed,
	}
	if err := store.RecordAnalysis(rec); err != nil {
		log.Warn().Err(err).Msg("failed to record analysis history")
	}
}
