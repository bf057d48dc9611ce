package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

// --- Fakes for batch testing ---

// recordingSleeper records requested delays without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.delays = append(s.delays, d)
	return nil
}

func (s *recordingSleeper) total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum time.Duration
	for _, d := range s.delays {
		sum += d
	}
	return sum
}

// fakeJobService scripts the statuses returned by Get.
type fakeJobService struct {
	mu       sync.Mutex
	statuses []domain.BatchJobStatus
	readyAt  int // 1-based query that carries the URL; 0 means never
	getErr   error
	queries  int

	created  int
	uploaded [][]domain.MutateOperation
	ran      int
	results  map[string][]byte
}

func (f *fakeJobService) Create(_ context.Context, customerID string) (*domain.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return &domain.BatchJob{
		ID:         "customers/" + customerID + "/batchJobs/" + string(rune('0'+f.created)),
		CustomerID: customerID,
		Status:     domain.BatchJobAwaitingFile,
	}, nil
}

func (f *fakeJobService) Get(_ context.Context, jobID string) (*domain.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.getErr != nil {
		return nil, f.getErr
	}
	job := &domain.BatchJob{ID: jobID, Status: domain.BatchJobActive}
	if idx := f.queries - 1; idx < len(f.statuses) {
		job.Status = f.statuses[idx]
	}
	if f.readyAt > 0 && f.queries >= f.readyAt {
		job.Status = domain.BatchJobDone
		job.DownloadURL = "https://example.test/" + jobID + ":listResults"
	}
	return job, nil
}

func (f *fakeJobService) Upload(_ context.Context, _ *domain.BatchJob, ops []domain.MutateOperation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, ops)
	return nil
}

func (f *fakeJobService) Run(_ context.Context, _ *domain.BatchJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran++
	return nil
}

func (f *fakeJobService) DownloadResult(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if body, ok := f.results[url]; ok {
		return body, nil
	}
	return []byte(`{"results":[]}`), nil
}

var _ driven.BatchJobService = (*fakeJobService)(nil)

func zeroJitter(time.Duration) time.Duration { return 0 }

// --- Tests ---

func TestBatchPoller_ReadyOnFifthQuery(t *testing.T) {
	jobs := &fakeJobService{readyAt: 5}
	sleeper := &recordingSleeper{}
	p := NewBatchPoller(jobs, sleeper, WithJitter(zeroJitter))

	url, err := p.Poll(context.Background(), &domain.BatchJob{ID: "job-1", Status: domain.BatchJobActive})

	require.NoError(t, err)
	assert.Equal(t, "https://example.test/job-1:listResults", url)
	assert.Equal(t, 5, jobs.queries)
	assert.Equal(t, []time.Duration{
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
		160 * time.Second,
	}, sleeper.delays)
}

func TestBatchPoller_NeverReady(t *testing.T) {
	jobs := &fakeJobService{}
	sleeper := &recordingSleeper{}
	p := NewBatchPoller(jobs, sleeper)

	_, err := p.Poll(context.Background(), &domain.BatchJob{ID: "job-2", Status: domain.BatchJobActive})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPollExhausted)

	var timeout *domain.PollTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "job-2", timeout.JobID)
	assert.Equal(t, domain.BatchJobActive, timeout.LastStatus)
	assert.Equal(t, 5, timeout.Attempts)

	assert.Equal(t, 5, jobs.queries)
	assert.GreaterOrEqual(t, sleeper.total(), 310*time.Second)
	assert.LessOrEqual(t, sleeper.total(), 360*time.Second)
}

func TestBatchPoller_ReadyImmediately(t *testing.T) {
	jobs := &fakeJobService{}
	sleeper := &recordingSleeper{}
	p := NewBatchPoller(jobs, sleeper)

	job := &domain.BatchJob{ID: "job-3", Status: domain.BatchJobDone, DownloadURL: "https://example.test/r"}
	res := <-p.PollAsync(context.Background(), job)

	require.NoError(t, res.Err)
	assert.Equal(t, domain.PollReady, res.State)
	assert.Equal(t, "https://example.test/r", res.DownloadURL)
	assert.Zero(t, res.Queries)
	assert.Empty(t, sleeper.delays)
}

func TestBatchPoller_FinishedWithoutURL(t *testing.T) {
	jobs := &fakeJobService{statuses: []domain.BatchJobStatus{
		domain.BatchJobActive,
		domain.BatchJobCanceled,
	}}
	p := NewBatchPoller(jobs, &recordingSleeper{}, WithJitter(zeroJitter))

	res := <-p.PollAsync(context.Background(), &domain.BatchJob{ID: "job-4"})

	assert.Equal(t, domain.PollFailed, res.State)
	assert.Equal(t, 2, res.Queries)
	assert.ErrorIs(t, res.Err, domain.ErrJobFailed)
	assert.Equal(t, domain.BatchJobCanceled, res.LastStatus)
}

func TestBatchPoller_AwaitingFileKeepsPolling(t *testing.T) {
	jobs := &fakeJobService{
		statuses: []domain.BatchJobStatus{domain.BatchJobAwaitingFile, domain.BatchJobActive},
		readyAt:  3,
	}
	p := NewBatchPoller(jobs, &recordingSleeper{}, WithJitter(zeroJitter))

	res := <-p.PollAsync(context.Background(), &domain.BatchJob{ID: "job-5"})

	require.NoError(t, res.Err)
	assert.Equal(t, domain.PollReady, res.State)
	assert.Equal(t, 3, res.Queries)
	assert.Equal(t, 70*time.Second, res.Slept)
}

func TestBatchPoller_GetError(t *testing.T) {
	jobs := &fakeJobService{getErr: errors.New("boom")}
	p := NewBatchPoller(jobs, &recordingSleeper{})

	_, err := p.Poll(context.Background(), &domain.BatchJob{ID: "job-6"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "get batch job job-6")
	assert.Equal(t, 1, jobs.queries)
}

func TestBatchPoller_ContextCancelled(t *testing.T) {
	jobs := &fakeJobService{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewBatchPoller(jobs, &recordingSleeper{})
	_, err := p.Poll(ctx, &domain.BatchJob{ID: "job-7"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, jobs.queries)
}

func TestBatchPoller_CustomAttempts(t *testing.T) {
	jobs := &fakeJobService{}
	p := NewBatchPoller(jobs, &recordingSleeper{}, WithMaxAttempts(2), WithBase(time.Second), WithMaxJitter(0))

	_, err := p.Poll(context.Background(), &domain.BatchJob{ID: "job-8"})

	assert.ErrorIs(t, err, domain.ErrPollExhausted)
	assert.Equal(t, 2, jobs.queries)
	assert.Equal(t, 2, p.MaxAttempts())
}

func TestBatchPoller_NilJob(t *testing.T) {
	p := NewBatchPoller(&fakeJobService{}, &recordingSleeper{})

	_, err := p.Poll(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBackoff_JitterWithinBounds(t *testing.T) {
	p := NewBatchPoller(&fakeJobService{}, nil)

	for n := 0; n < 5; n++ {
		base := DefaultPollBase << n
		for i := 0; i < 20; i++ {
			d := p.Backoff(n)
			assert.GreaterOrEqual(t, d, base)
			assert.LessOrEqual(t, d, base+DefaultPollMaxJitter)
		}
	}
}

func TestBatchPoller_LongPollStaysCapped(t *testing.T) {
	jobs := &fakeJobService{}
	sleeper := &recordingSleeper{}
	p := NewBatchPoller(jobs, sleeper, WithMaxAttempts(40), WithMaxJitter(0))

	_, err := p.Poll(context.Background(), &domain.BatchJob{ID: "job-9"})

	assert.ErrorIs(t, err, domain.ErrPollExhausted)
	require.Len(t, sleeper.delays, 40)
	for i, d := range sleeper.delays {
		assert.Positive(t, d, "delay %d", i)
		assert.LessOrEqual(t, d, DefaultPollMaxDelay, "delay %d", i)
		if i > 0 {
			assert.GreaterOrEqual(t, d, sleeper.delays[i-1], "delay %d", i)
		}
	}
	assert.Equal(t, DefaultPollMaxDelay, sleeper.delays[39])
}

func TestBackoff_MaxDelay(t *testing.T) {
	p := NewBatchPoller(&fakeJobService{}, nil, WithBase(time.Second), WithMaxJitter(0), WithMaxDelay(5*time.Second))

	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 5*time.Second, p.Backoff(3))
	assert.Equal(t, 5*time.Second, p.Backoff(200))
}

func TestTimerSleeper(t *testing.T) {
	s := TimerSleeper{}

	require.NoError(t, s.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Sleep(ctx, time.Hour), context.Canceled)
}
