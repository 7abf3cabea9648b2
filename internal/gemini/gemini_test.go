package gemini

import (
	"testing"

	"analysis-suite/internal/analyzer"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestMapState(t *testing.T) {
	tests := []struct {
		in   genai.FileState
		want analyzer.State
	}{
		{genai.FileStateProcessing, analyzer.StateProcessing},
		{genai.FileStateActive, analyzer.StateReady},
		{genai.FileStateFailed, analyzer.StateFailed},
		{genai.FileStateUnspecified, analyzer.StatePending},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapState(tt.in))
	}
}

func TestToHandle(t *testing.T) {
	h := toHandle(&genai.File{
		Name:     "files/abc123",
		URI:      "https://generativelanguage.googleapis.com/v1beta/files/abc123",
		MIMEType: "video/mp4",
		State:    genai.FileStateActive,
	})
	assert.Equal(t, "files/abc123", h.ID)
	assert.Equal(t, "video/mp4", h.MIMEType)
	assert.Equal(t, analyzer.StateReady, h.State)
}
