package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/logger"
)

// Poller defaults.
const (
	DefaultPollAttempts  = 5
	DefaultPollBase      = 10 * time.Second
	DefaultPollMaxJitter = 10 * time.Second
	DefaultPollMaxDelay  = time.Hour
)

// BatchPoller waits for batch jobs to produce a download URL.
// It only reads jobs and never cancels them.
type BatchPoller struct {
	jobs        driven.BatchJobService
	sleeper     driven.Sleeper
	maxAttempts int
	base        time.Duration
	maxJitter   time.Duration
	maxDelay    time.Duration
	jitter      func(max time.Duration) time.Duration
}

// PollerOption configures a BatchPoller.
type PollerOption func(*BatchPoller)

// WithMaxAttempts sets the number of status queries before giving up.
func WithMaxAttempts(n int) PollerOption {
	return func(p *BatchPoller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithBase sets the first backoff delay.
func WithBase(d time.Duration) PollerOption {
	return func(p *BatchPoller) {
		if d >= 0 {
			p.base = d
		}
	}
}

// WithMaxJitter sets the upper bound of the random delay added to each backoff.
func WithMaxJitter(d time.Duration) PollerOption {
	return func(p *BatchPoller) {
		if d >= 0 {
			p.maxJitter = d
		}
	}
}

// WithMaxDelay caps the exponential part of the backoff.
func WithMaxDelay(d time.Duration) PollerOption {
	return func(p *BatchPoller) {
		if d > 0 {
			p.maxDelay = d
		}
	}
}

// WithJitter replaces the jitter source. fn receives the maximum jitter.
func WithJitter(fn func(max time.Duration) time.Duration) PollerOption {
	return func(p *BatchPoller) {
		if fn != nil {
			p.jitter = fn
		}
	}
}

// NewBatchPoller creates a poller. A nil sleeper uses real timers.
func NewBatchPoller(jobs driven.BatchJobService, sleeper driven.Sleeper, opts ...PollerOption) *BatchPoller {
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	p := &BatchPoller{
		jobs:        jobs,
		sleeper:     sleeper,
		maxAttempts: DefaultPollAttempts,
		base:        DefaultPollBase,
		maxJitter:   DefaultPollMaxJitter,
		maxDelay:    DefaultPollMaxDelay,
		jitter:      uniformJitter,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxAttempts returns the configured attempt ceiling.
func (p *BatchPoller) MaxAttempts() int {
	return p.maxAttempts
}

// Backoff returns the delay before query n, counted from zero:
// base * 2^n, capped at the max delay, plus jitter.
func (p *BatchPoller) Backoff(n int) time.Duration {
	d := min(p.base, p.maxDelay)
	for i := 0; i < n && d < p.maxDelay; i++ {
		d = min(d*2, p.maxDelay)
	}
	if p.maxJitter > 0 {
		d += p.jitter(p.maxJitter)
	}
	return d
}

// Poll blocks until the job is ready, fails or the attempts run out.
// It returns the download URL on success.
func (p *BatchPoller) Poll(ctx context.Context, job *domain.BatchJob) (string, error) {
	res := p.poll(ctx, job)
	return res.DownloadURL, res.Err
}

// PollAsync polls in the background. The channel yields one result and is closed.
func (p *BatchPoller) PollAsync(ctx context.Context, job *domain.BatchJob) <-chan domain.PollResult {
	ch := make(chan domain.PollResult, 1)
	go func() {
		defer close(ch)
		ch <- p.poll(ctx, job)
	}()
	return ch
}

func (p *BatchPoller) poll(ctx context.Context, job *domain.BatchJob) domain.PollResult {
	res := domain.PollResult{State: domain.PollSubmitted}
	if job == nil {
		res.State = domain.PollFailed
		res.Err = fmt.Errorf("poll batch job: %w", domain.ErrInvalidInput)
		return res
	}
	res.JobID = job.ID
	res.LastStatus = job.Status

	if job.Ready() {
		res.State = domain.PollReady
		res.DownloadURL = job.DownloadURL
		return res
	}

	res.State = domain.PollPolling
	for n := 0; n < p.maxAttempts; n++ {
		delay := p.Backoff(n)
		logger.Debug("batch job %s: waiting %s before attempt %d/%d", job.ID, delay, n+1, p.maxAttempts)
		if err := p.sleeper.Sleep(ctx, delay); err != nil {
			res.Err = err
			return res
		}
		res.Slept += delay

		current, err := p.jobs.Get(ctx, job.ID)
		res.Queries++
		if err != nil {
			res.State = domain.PollFailed
			res.Err = fmt.Errorf("get batch job %s: %w", job.ID, err)
			return res
		}
		res.LastStatus = current.Status

		if current.Ready() {
			res.State = domain.PollReady
			res.DownloadURL = current.DownloadURL
			logger.Debug("batch job %s ready after %d queries", job.ID, res.Queries)
			return res
		}
		if !current.Status.Pending() {
			res.State = domain.PollFailed
			res.Err = &domain.JobFailedError{JobID: job.ID, Status: current.Status}
			return res
		}
	}

	res.State = domain.PollExhausted
	res.Err = &domain.PollTimeoutError{
		JobID:      job.ID,
		LastStatus: res.LastStatus,
		Attempts:   res.Queries,
	}
	logger.Warn("%v", res.Err)
	return res
}

// uniformJitter draws a whole number of milliseconds in [0, max].
func uniformJitter(max time.Duration) time.Duration {
	ms := int64(max / time.Millisecond)
	if ms <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(ms+1)) * time.Millisecond
}

// TimerSleeper sleeps on a real timer and wakes early when ctx is done.
type TimerSleeper struct{}

// Sleep waits for d or until ctx is cancelled.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ driven.Sleeper = TimerSleeper{}
