package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"analysis-suite/internal/analyzer"
	"analysis-suite/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Server exposes the video analysis driver over HTTP.
type Server struct {
	analyzer         analyzer.VideoAnalyzer
	store            *storage.Store
	stagingDir       string
	supportedFormats []string
	maxUploadBytes   int64
}

// Opts configures a Server.
type Opts struct {
	Analyzer         analyzer.VideoAnalyzer
	Store            *storage.Store
	StagingDir       string
	SupportedFormats []string
	// MaxUploadBytes defaults to 200MB when zero.
	MaxUploadBytes int64
}

// New creates a Server.
func New(opts Opts) *Server {
	maxUpload := opts.MaxUploadBytes
	if maxUpload == 0 {
		maxUpload = 200 << 20
	}
	return &Server{
		analyzer:         opts.Analyzer,
		store:            opts.Store,
		stagingDir:       opts.StagingDir,
		supportedFormats: opts.SupportedFormats,
		maxUploadBytes:   maxUpload,
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/analyses", s.handleAnalyze)
	api.GET("/analyses", s.handleHistory)

	return r
}

// Run serves HTTP on addr until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Str("addr", addr).Msg("http server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requestLogger logs each request with zerolog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}
