package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock advances virtual time on every Sleep so the retry loop
// runs without real delays.
type manualClock struct {
	now    time.Time
	sleeps int
}

func (c *manualClock) Now() time.Time {
	return c.now
}

func (c *manualClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps++
	c.now = c.now.Add(d)
	return ctx.Err()
}

type fakeUploader struct {
	submitFn  func(call int) (*Handle, error)
	refreshFn func(call int, h *Handle) (*Handle, error)
	submits   int
	refreshes int
}

func (f *fakeUploader) Submit(ctx context.Context, path string) (*Handle, error) {
	f.submits++
	return f.submitFn(f.submits)
}

func (f *fakeUploader) Refresh(ctx context.Context, h *Handle) (*Handle, error) {
	f.refreshes++
	return f.refreshFn(f.refreshes, h)
}

type fakeAgent struct {
	respondFn func(call int, prompt string, h *Handle) (string, error)
	calls     int
}

func (f *fakeAgent) Respond(ctx context.Context, prompt string, h *Handle) (string, error) {
	f.calls++
	return f.respondFn(f.calls, prompt, h)
}

func readyHandle(id string) *Handle {
	return &Handle{ID: id, URI: "files/" + id, MIMEType: "video/mp4", State: StateReady}
}

func writeTempVideo(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("fake video bytes"), 0o644))
	return path
}

func newTestDriver(t *testing.T, cfg Config, up Uploader, ag Agent) (*Driver, *manualClock) {
	t.Helper()
	d, err := NewDriver(cfg, up, ag)
	require.NoError(t, err)
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	d.clock = clock
	return d, clock
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	zeroAttempts := DefaultConfig()
	zeroAttempts.MaxAttempts = 0
	assert.Error(t, zeroAttempts.Validate())

	noTimeout := DefaultConfig()
	noTimeout.Timeout = 0
	assert.Error(t, noTimeout.Validate())

	_, err := NewDriver(zeroAttempts, &fakeUploader{}, &fakeAgent{})
	assert.Error(t, err)
}

func TestPermanentFailureConsumesAllAttempts(t *testing.T) {
	path := writeTempVideo(t, "clip.mp4")
	up := &fakeUploader{
		submitFn: func(int) (*Handle, error) {
			return nil, errors.New("service unavailable")
		},
	}
	ag := &fakeAgent{}

	cfg := DefaultConfig()
	cfg.MaxAttempts = 4
	cfg.PollDelay = 2 * time.Second
	d, _ := newTestDriver(t, cfg, up, ag)

	res, err := d.Analyze(context.Background(), path, "what happens?")
	require.Error(t, err)
	assert.Nil(t, res)

	var exhausted *ExhaustionError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Contains(t, exhausted.Error(), "after 4 attempts")
	assert.Contains(t, exhausted.Error(), "service unavailable")
	assert.Equal(t, 4, up.submits)
	assert.Equal(t, 0, ag.calls)
}

func TestSucceedsOnAttemptK(t *testing.T) {
	for _, k := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			path := writeTempVideo(t, "clip.mov")
			up := &fakeUploader{
				submitFn: func(call int) (*Handle, error) {
					if call < k {
						return nil, errors.New("transient upload error")
					}
					return readyHandle(fmt.Sprintf("f%d", call)), nil
				},
			}
			ag := &fakeAgent{
				respondFn: func(int, string, *Handle) (string, error) {
					return "the video shows a cat", nil
				},
			}

			cfg := DefaultConfig()
			cfg.MaxAttempts = 3
			d, _ := newTestDriver(t, cfg, up, ag)

			res, err := d.Analyze(context.Background(), path, "what happens?")
			require.NoError(t, err)
			assert.Equal(t, "the video shows a cat", res.Content)
			assert.Equal(t, k, res.Attempts)
			assert.Equal(t, k, up.submits)
			// Failed attempts never reuse handles via refresh.
			assert.Equal(t, 0, up.refreshes)
		})
	}
}

func TestValidationFailsBeforeAnyServiceCall(t *testing.T) {
	up := &fakeUploader{}
	ag := &fakeAgent{}
	d, _ := newTestDriver(t, DefaultConfig(), up, ag)

	tests := []struct {
		name   string
		path   string
		prompt string
	}{
		{"unsupported extension", writeTempVideo(t, "notes.txt"), "summarize"},
		{"missing file", filepath.Join(t.TempDir(), "nope.mp4"), "summarize"},
		{"empty prompt", writeTempVideo(t, "clip.mp4"), "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Analyze(context.Background(), tt.path, tt.prompt)
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, 0, up.submits)
			assert.Equal(t, 0, ag.calls)
		})
	}
}

func TestPollingTimeoutConsumesOneAttempt(t *testing.T) {
	path := writeTempVideo(t, "clip.avi")
	processing := &Handle{ID: "f1", State: StateProcessing}
	up := &fakeUploader{
		submitFn: func(int) (*Handle, error) { return processing, nil },
		refreshFn: func(int, *Handle) (*Handle, error) {
			return processing, nil
		},
	}
	ag := &fakeAgent{}

	cfg := DefaultConfig()
	cfg.MaxAttempts = 2
	cfg.PollDelay = 2 * time.Second
	cfg.Timeout = 3 * time.Second
	d, _ := newTestDriver(t, cfg, up, ag)

	_, err := d.Analyze(context.Background(), path, "what happens?")
	var exhausted *ExhaustionError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)
	assert.Contains(t, exhausted.Error(), "timed out")
	// Both attempts submitted fresh and timed out independently.
	assert.Equal(t, 2, up.submits)
	assert.Equal(t, 0, ag.calls)
}

func TestElapsedCoversOnlySuccessfulAttempt(t *testing.T) {
	path := writeTempVideo(t, "clip.mp4")
	up := &fakeUploader{
		submitFn: func(call int) (*Handle, error) {
			// Both attempts start in PROCESSING and need one poll.
			return &Handle{ID: fmt.Sprintf("f%d", call), State: StateProcessing}, nil
		},
		refreshFn: func(call int, h *Handle) (*Handle, error) {
			return &Handle{ID: h.ID, State: StateReady}, nil
		},
	}
	ag := &fakeAgent{
		respondFn: func(call int, _ string, _ *Handle) (string, error) {
			if call == 1 {
				return "", errors.New("model overloaded")
			}
			return "done", nil
		},
	}

	cfg := DefaultConfig()
	cfg.MaxAttempts = 2
	cfg.PollDelay = 2 * time.Second
	d, _ := newTestDriver(t, cfg, up, ag)

	res, err := d.Analyze(context.Background(), path, "what happens?")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Elapsed, time.Duration(0))
	// One poll sleep inside the winning attempt; the failed first attempt
	// and the inter-attempt delay are not included.
	assert.Equal(t, 2*time.Second, res.Elapsed)
	assert.Equal(t, 2, res.Attempts)
}

func TestFailedStateIsPassedToAgent(t *testing.T) {
	path := writeTempVideo(t, "clip.mp4")
	up := &fakeUploader{
		submitFn: func(call int) (*Handle, error) {
			return &Handle{ID: "f1", State: StateFailed}, nil
		},
	}
	ag := &fakeAgent{
		respondFn: func(int, string, *Handle) (string, error) {
			return "", errors.New("file is not in ACTIVE state")
		},
	}

	cfg := DefaultConfig()
	cfg.MaxAttempts = 1
	d, _ := newTestDriver(t, cfg, up, ag)

	_, err := d.Analyze(context.Background(), path, "what happens?")
	var exhausted *ExhaustionError
	require.ErrorAs(t, err, &exhausted)
	// The FAILED handle reached inference and failed there.
	assert.Equal(t, 1, ag.calls)
}

func TestThirdAttemptSucceedsExample(t *testing.T) {
	path := writeTempVideo(t, "clip.mp4")
	up := &fakeUploader{
		submitFn: func(call int) (*Handle, error) {
			if call <= 2 {
				return nil, errors.New("boom")
			}
			return readyHandle("f3"), nil
		},
	}
	ag := &fakeAgent{
		respondFn: func(int, string, *Handle) (string, error) {
			return "OK", nil
		},
	}

	cfg := DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.PollDelay = 0
	d, _ := newTestDriver(t, cfg, up, ag)

	res, err := d.Analyze(context.Background(), path, "what happens?")
	require.NoError(t, err)
	assert.Equal(t, "OK", res.Content)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, up.submits)
}

func TestSleepAbortsOnCancelledContext(t *testing.T) {
	path := writeTempVideo(t, "clip.mp4")
	up := &fakeUploader{
		submitFn: func(int) (*Handle, error) {
			return nil, errors.New("transient upload error")
		},
	}
	d, _ := newTestDriver(t, DefaultConfig(), up, &fakeAgent{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Analyze(ctx, path, "what happens?")
	var exhausted *ExhaustionError
	require.ErrorAs(t, err, &exhausted)
	// The inter-attempt sleep observed the cancellation after the first
	// failure, so only one attempt ran.
	assert.Equal(t, 1, exhausted.Attempts)
	assert.ErrorIs(t, exhausted.LastErr, context.Canceled)
}
