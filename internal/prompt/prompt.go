package prompt

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

// Categories supported by the video analysis prompt. "general" adds no
// extra guidance.
const (
	CategoryGeneral      = "general"
	CategoryTutorial     = "tutorial"
	CategoryPresentation = "presentation"
	CategoryProduct      = "product"
)

var videoPromptTemplate = dedent.Dedent(`
	You are an expert video analyst. Watch this video carefully and answer the
	user's question with specific, evidence-based observations.

	User's question: %q

	Cover the following in your answer:
	1. A brief summary of the video's content, structure and production style.
	2. A direct response to the question, citing key moments with timestamps.
	3. Notable patterns, themes or technical details worth highlighting.
	4. Relevant background context, including web research where it helps.

	Keep the tone clear and conversational, and support every claim with
	something visible or audible in the video.`)

var categoryGuidance = map[string]string{
	CategoryTutorial: dedent.Dedent(`
		This is a tutorial video. Also assess the clarity of the learning
		objectives, the quality of the step-by-step instruction, and what
		prior knowledge a viewer needs.`),
	CategoryPresentation: dedent.Dedent(`
		This is a presentation. Also assess the slide design, the speaker's
		delivery and engagement, and how clearly the key message lands.`),
	CategoryProduct: dedent.Dedent(`
		This is a product video. Also assess how clearly the features are
		demonstrated, the communicated value proposition, and how the product
		compares to similar ones.`),
}

// ValidCategory reports whether the given category label is known.
func ValidCategory(category string) bool {
	if category == CategoryGeneral {
		return true
	}
	_, ok := categoryGuidance[category]
	return ok
}

// Video builds the analysis prompt for a user question, with extra
// guidance appended for non-general categories.
func Video(query string, category string) string {
	p := fmt.Sprintf(videoPromptTemplate, query)
	if guidance, ok := categoryGuidance[category]; ok {
		p += "\n" + guidance
	}
	return strings.TrimSpace(p)
}

var stockPromptTemplate = dedent.Dedent(`
	You are a financial analyst. Write a concise analysis of %s using the
	market data and recent headlines below.

	Market data:
	%s

	Recent headlines:
	%s

	Cover current valuation, analyst sentiment, notable risks and recent
	news-driven developments. Use tables where they make the numbers easier
	to compare, and attribute any claim taken from a headline.`)

// Stock builds the analyst prompt for a ticker symbol from pre-fetched
// market data and news headlines.
func Stock(symbol string, marketData string, headlines []string) string {
	news := "No recent headlines found."
	if len(headlines) > 0 {
		var b strings.Builder
		for _, h := range headlines {
			b.WriteString("- ")
			b.WriteString(h)
			b.WriteString("\n")
		}
		news = strings.TrimRight(b.String(), "\n")
	}
	return strings.TrimSpace(fmt.Sprintf(stockPromptTemplate, symbol, marketData, news))
}
