package gemini

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"analysis-suite/internal/analyzer"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const geminiModel = "gemini-2.0-flash"

// Gemini 2.0 Flash pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.10
	geminiOutputPricePerMillion = 0.40
)

var mimeTypes = map[string]string{
	".mp4": "video/mp4",
	".mov": "video/quicktime",
	".avi": "video/x-msvideo",
}

// Client talks to the Gemini API. It implements both the analyzer's
// Uploader (via the Files API) and Agent (via GenerateContent with
// Google Search grounding) interfaces.
type Client struct {
	genai *genai.Client
}

// NewClient creates a Gemini client with the given API key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{genai: client}, nil
}

// Submit uploads the file to the Gemini Files API. The returned handle
// is typically in the PROCESSING state for videos.
func (c *Client) Submit(ctx context.Context, path string) (*analyzer.Handle, error) {
	mime, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mime = "video/mp4"
	}

	file, err := c.genai.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType: mime,
	})
	if err != nil {
		return nil, fmt.Errorf("file upload failed: %w", err)
	}

	h := toHandle(file)
	log.Debug().Str("file", h.ID).Str("state", string(h.State)).Msg("media file submitted")
	return h, nil
}

// Refresh re-fetches the file's current processing state.
func (c *Client) Refresh(ctx context.Context, h *analyzer.Handle) (*analyzer.Handle, error) {
	file, err := c.genai.Files.Get(ctx, h.ID, nil)
	if err != nil {
		return nil, fmt.Errorf("file status fetch failed: %w", err)
	}
	return toHandle(file), nil
}

// Respond asks the model about the processed media file. The Google
// Search tool is enabled so answers can include web research context.
func (c *Client) Respond(ctx context.Context, prompt string, h *analyzer.Handle) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromURI(h.URI, h.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	result, err := c.genai.Models.GenerateContent(ctx, geminiModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	// Log usage and cost
	if result.UsageMetadata != nil {
		cost := calculateGeminiCost(
			int64(result.UsageMetadata.PromptTokenCount),
			int64(result.UsageMetadata.CandidatesTokenCount),
		)
		log.Info().
			Str("model", geminiModel).
			Str("file", h.ID).
			Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
			Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
			Float64("costUSD", cost).
			Msg("video analysis llm call")
	}

	return result.Text(), nil
}

func toHandle(file *genai.File) *analyzer.Handle {
	return &analyzer.Handle{
		ID:       file.Name,
		URI:      file.URI,
		MIMEType: file.MIMEType,
		State:    mapState(file.State),
	}
}

func mapState(s genai.FileState) analyzer.State {
	switch s {
	case genai.FileStateProcessing:
		return analyzer.StateProcessing
	case genai.FileStateActive:
		return analyzer.StateReady
	case genai.FileStateFailed:
		return analyzer.StateFailed
	default:
		return analyzer.StatePending
	}
}

func calculateGeminiCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * geminiInputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * geminiOutputPricePerMillion
	return inputCost + outputCost
}
