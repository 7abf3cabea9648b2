package stocks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadlines(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "TSLA stock news", r.URL.Query().Get("q"))
		require.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"AbstractText": "Tesla is an American electric vehicle company.",
			"RelatedTopics": [
				{"Text": "Tesla beats delivery estimates"},
				{"Topics": [{"Text": "Analysts split on Tesla valuation"}]},
				{"Text": "Tesla opens new factory"}
			]
		}`)
	}))
	defer ts.Close()

	client := NewSearchClient(SearchClientOpts{BaseURL: ts.URL})
	headlines, err := client.Headlines(context.Background(), "TSLA stock news", 3)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Tesla is an American electric vehicle company.",
		"Tesla beats delivery estimates",
		"Analysts split on Tesla valuation",
	}, headlines)
}

func TestHeadlinesEmptyResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"AbstractText": "", "RelatedTopics": []}`)
	}))
	defer ts.Close()

	client := NewSearchClient(SearchClientOpts{BaseURL: ts.URL})
	headlines, err := client.Headlines(context.Background(), "obscure query", 5)
	require.NoError(t, err)
	assert.Empty(t, headlines)
}
