package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"analysis-suite/internal/analyzer"
	"analysis-suite/internal/prompt"
	"analysis-suite/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type analyzeResponse struct {
	Success        bool    `json:"success"`
	Content        string  `json:"content"`
	ProcessingTime float64 `json:"processingTime"`
	Attempts       int     `json:"attempts"`
	Cached         bool    `json:"cached"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Success: false, Error: msg})
}

// handleAnalyze accepts a multipart video upload with a question and
// runs the analysis driver against it. The staged copy of the upload is
// removed on every exit path.
func (s *Server) handleAnalyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)

	fileHeader, err := c.FormFile("video")
	if err != nil {
		respondError(c, http.StatusBadRequest, "video file is required")
		return
	}

	query := strings.TrimSpace(c.PostForm("query"))
	if query == "" {
		respondError(c, http.StatusBadRequest, "query is required")
		return
	}

	category := c.DefaultPostForm("category", prompt.CategoryGeneral)
	if !prompt.ValidCategory(category) {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("unknown category %q", category))
		return
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileHeader.Filename)), ".")
	if !s.extensionSupported(ext) {
		respondError(c, http.StatusBadRequest, fmt.Sprintf(
			"unsupported file format, please upload: %s", strings.Join(s.supportedFormats, ", ")))
		return
	}

	stagedPath, err := s.stageUpload(fileHeader)
	if err != nil {
		log.Error().Err(err).Msg("failed to stage upload")
		respondError(c, http.StatusInternalServerError, "failed to store uploaded file")
		return
	}
	defer func() {
		if err := os.Remove(stagedPath); err != nil {
			log.Warn().Err(err).Str("path", stagedPath).Msg("failed to remove staged upload")
		}
	}()

	result, err := s.analyzer.Analyze(c.Request.Context(), stagedPath, prompt.Video(query, category))

	s.recordHistory(fileHeader.Filename, query, result, err)

	if err != nil {
		var validation *analyzer.ValidationError
		if errors.As(err, &validation) {
			respondError(c, http.StatusBadRequest, validation.Error())
			return
		}
		respondError(c, http.StatusBadGateway, err.Error())
		return
	}

	c.JSON(http.StatusOK, analyzeResponse{
		Success:        true,
		Content:        result.Content,
		ProcessingTime: result.Elapsed.Seconds(),
		Attempts:       result.Attempts,
		Cached:         result.Cached,
	})
}

// stageUpload copies the multipart file into the staging directory and
// returns its path. The caller owns the file and must remove it.
func (s *Server) stageUpload(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(s.stagingDir, stagedFilePattern+filepath.Ext(fileHeader.Filename))
	if err != nil {
		return "", fmt.Errorf("failed to create staged file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write staged file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to close staged file: %w", err)
	}

	return dst.Name(), nil
}

func (s *Server) extensionSupported(ext string) bool {
	for _, f := range s.supportedFormats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}

func (s *Server) recordHistory(filename, query string, result *analyzer.Result, analysisErr error) {
	if s.store == nil {
		return
	}

	rec := &storage.AnalysisRecord{
		Kind:    "video",
		Subject: filename,
		Query:   query,
	}
	if analysisErr != nil {
		rec.Content = analysisErr.Error()
		var exhausted *analyzer.ExhaustionError
		if errors.As(analysisErr, &exhausted) {
			rec.Attempts = exhausted.Attempts
		}
	} else {
		rec.Content = result.Content
		rec.Success = true
		rec.Attempts = result.Attempts
		rec.Duration = result.Elapsed
	}

	if err := s.store.RecordAnalysis(rec); err != nil {
		log.Warn().Err(err).Msg("failed to record analysis history")
	}
}

type historyEntry struct {
	ID        int64   `json:"id"`
	Kind      string  `json:"kind"`
	Subject   string  `json:"subject"`
	Query     string  `json:"query"`
	Content   string  `json:"content"`
	Success   bool    `json:"success"`
	Attempts  int     `json:"attempts"`
	Duration  float64 `json:"duration"`
	CreatedAt string  `json:"createdAt"`
}

// handleHistory lists recent analyses, newest first.
func (s *Server) handleHistory(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			respondError(c, http.StatusBadRequest, "limit must be an integer between 1 and 200")
			return
		}
		limit = parsed
	}

	records, err := s.store.RecentAnalyses(limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list analysis history")
		respondError(c, http.StatusInternalServerError, "failed to list analyses")
		return
	}

	entries := make([]historyEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, historyEntry{
			ID:        rec.ID,
			Kind:      rec.Kind,
			Subject:   rec.Subject,
			Query:     rec.Query,
			Content:   rec.Content,
			Success:   rec.Success,
			Attempts:  rec.Attempts,
			Duration:  rec.Duration.Seconds(),
			CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"analyses": entries})
}
