package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// State describes the remote readiness of an uploaded media file.
type State string

const (
	StatePending    State = "PENDING"
	StateProcessing State = "PROCESSING"
	StateReady      State = "READY"
	StateFailed     State = "FAILED"
)

// Handle is an opaque reference to a remotely processed media file.
// The ID is used to re-fetch status while the file is processing.
type Handle struct {
	ID       string
	URI      string
	MIMEType string
	State    State
}

// Uploader submits media files to a remote processing service.
type Uploader interface {
	// Submit uploads the file and returns a handle with its initial state.
	Submit(ctx context.Context, path string) (*Handle, error)
	// Refresh re-fetches the current state of a previously submitted file.
	Refresh(ctx context.Context, h *Handle) (*Handle, error)
}

// Agent answers a prompt about a processed media file.
type Agent interface {
	Respond(ctx context.Context, prompt string, h *Handle) (string, error)
}

// Config holds the retry policy and input constraints for the driver.
// It is created once at startup and never mutated.
type Config struct {
	// SupportedFormats lists allowed file extensions without the dot.
	SupportedFormats []string
	// MaxAttempts is the number of full submit-poll-infer cycles before
	// giving up. Must be at least 1.
	MaxAttempts int
	// PollDelay is the sleep between status polls and between attempts.
	PollDelay time.Duration
	// Timeout bounds the polling phase of a single attempt.
	Timeout time.Duration
}

// DefaultConfig returns the config used by the video analysis service.
func DefaultConfig() Config {
	return Config{
		SupportedFormats: []string{"mp4", "mov", "avi"},
		MaxAttempts:      3,
		PollDelay:        2 * time.Second,
		Timeout:          5 * time.Minute,
	}
}

// Validate checks that the config satisfies the driver's contract.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.PollDelay < 0 {
		return fmt.Errorf("poll delay must not be negative, got %s", c.PollDelay)
	}
	if len(c.SupportedFormats) == 0 {
		return fmt.Errorf("at least one supported format is required")
	}
	return nil
}

// Result is the outcome of a successful analysis.
type Result struct {
	Content string
	// Elapsed covers only the successful attempt, measured from its
	// submission. Zero for cached results.
	Elapsed  time.Duration
	Attempts int
	Cached   bool
}

// VideoAnalyzer runs a full analysis of a local media file.
type VideoAnalyzer interface {
	Analyze(ctx context.Context, path string, prompt string) (*Result, error)
}

// Driver submits a media file for remote processing, polls until it is
// ready, asks the agent about it, and retries the whole cycle a bounded
// number of times on any failure.
//
// A Driver is safe for concurrent use: each Analyze call owns its own
// attempt counter and handle, and nothing is shared between calls.
type Driver struct {
	cfg      Config
	uploader Uploader
	agent    Agent
	clock    Clock
}

// NewDriver creates a driver with the given collaborators.
func NewDriver(cfg Config, uploader Uploader, agent Agent) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analyzer config: %w", err)
	}
	return &Driver{
		cfg:      cfg,
		uploader: uploader,
		agent:    agent,
		clock:    systemClock{},
	}, nil
}

// Analyze runs the submit-poll-infer cycle for the file at path.
//
// Validation failures (missing file, unsupported extension, empty prompt)
// return a *ValidationError before any attempt is made. Transient failures
// are retried up to MaxAttempts; when the budget is exhausted the last
// error is returned wrapped in an *ExhaustionError. No other errors cross
// this boundary.
func (d *Driver) Analyze(ctx context.Context, path string, prompt string) (*Result, error) {
	if err := d.validateInput(path, prompt); err != nil {
		return nil, err
	}

	var lastErr error
	attempts := 0
	for attempts < d.cfg.MaxAttempts {
		attempts++
		res, err := d.runAttempt(ctx, path, prompt)
		if err == nil {
			res.Attempts = attempts
			log.Info().
				Int("attempts", attempts).
				Dur("elapsed", res.Elapsed).
				Msg("analysis succeeded")
			return res, nil
		}

		lastErr = err
		log.Warn().
			Err(err).
			Int("attempt", attempts).
			Int("maxAttempts", d.cfg.MaxAttempts).
			Msg("analysis attempt failed")

		if attempts < d.cfg.MaxAttempts {
			if serr := d.clock.Sleep(ctx, d.cfg.PollDelay); serr != nil {
				lastErr = serr
				break
			}
		}
	}

	return nil, &ExhaustionError{Attempts: attempts, LastErr: lastErr}
}

// runAttempt performs one full submit-poll-infer cycle. Handles from a
// failed attempt are discarded; the next attempt submits fresh.
func (d *Driver) runAttempt(ctx context.Context, path string, prompt string) (*Result, error) {
	start := d.clock.Now()

	h, err := d.uploader.Submit(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("submit failed: %w", err)
	}

	for h.State == StateProcessing {
		if d.clock.Now().Sub(start) > d.cfg.Timeout {
			return nil, fmt.Errorf("media processing timed out after %s", d.cfg.Timeout)
		}
		if err := d.clock.Sleep(ctx, d.cfg.PollDelay); err != nil {
			return nil, err
		}
		h, err = d.uploader.Refresh(ctx, h)
		if err != nil {
			return nil, fmt.Errorf("status refresh failed: %w", err)
		}
	}

	// Any non-PROCESSING state goes to the agent. A FAILED handle is not
	// special-cased here; inference against it fails and consumes the
	// attempt like any other transient error.
	text, err := d.agent.Respond(ctx, prompt, h)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return &Result{Content: text, Elapsed: d.clock.Now().Sub(start)}, nil
}

func (d *Driver) validateInput(path string, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return &ValidationError{Reason: "prompt must not be empty"}
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if !d.formatSupported(ext) {
		return &ValidationError{Reason: fmt.Sprintf(
			"unsupported file format %q, supported formats: %s",
			ext, strings.Join(d.cfg.SupportedFormats, ", "),
		)}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("media file not found: %s", path)}
	}
	if info.IsDir() {
		return &ValidationError{Reason: fmt.Sprintf("media path is a directory: %s", path)}
	}
	return nil
}

func (d *Driver) formatSupported(ext string) bool {
	for _, f := range d.cfg.SupportedFormats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}
