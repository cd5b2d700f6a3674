package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"terabox-extractor/pkg/models"
)

// DefaultMaxConcurrent is used when no positive concurrency is configured
const DefaultMaxConcurrent = 3

// MsgCancelled is the error of items that never started because the batch was cancelled
const MsgCancelled = "Cancelled before resolution"

// BatchManager resolves lists of share links with bounded concurrency
type BatchManager struct {
	resolver      models.Resolver
	logger        zerolog.Logger
	maxConcurrent int
}

// JobStatus represents the status of a batch job
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusPartial   JobStatus = "partial"
)

// BatchProgress tracks progress of a batch job
type BatchProgress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Failed     int     `json:"failed"`
	Skipped    int     `json:"skipped"`
	Percentage float64 `json:"percentage"`
}

// BatchJob is one run over a list of URLs. Results[i] belongs to URLs[i].
type BatchJob struct {
	ID          string                `json:"id"`
	URLs        []string              `json:"urls"`
	Status      JobStatus             `json:"status"`
	Progress    BatchProgress         `json:"progress"`
	Results     []*models.VideoResult `json:"results"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
}

// ProgressFunc is called after every finished item
type ProgressFunc func(done, total int)

// NewBatchManager creates a new batch manager
func NewBatchManager(resolver models.Resolver, maxConcurrent int, logger zerolog.Logger) *BatchManager {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}

	return &BatchManager{
		resolver:      resolver,
		logger:        logger.With().Str("component", "batch_manager").Logger(),
		maxConcurrent: maxConcurrent,
	}
}

// Run resolves every URL and returns when all are done or ctx is cancelled.
// Each URL still runs its strategies sequentially; only URLs run in parallel.
func (bm *BatchManager) Run(ctx context.Context, urls []string, progress ProgressFunc) *BatchJob {
	job := &BatchJob{
		ID:        "batch_" + uuid.NewString(),
		URLs:      urls,
		Status:    JobStatusRunning,
		Progress:  BatchProgress{Total: len(urls)},
		Results:   make([]*models.VideoResult, len(urls)),
		StartedAt: time.Now(),
	}

	bm.logger.Info().Str("job_id", job.ID).Int("urls", len(urls)).Msg("Starting batch job")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		semaphore = make(chan struct{}, bm.maxConcurrent)
	)

	finish := func(i int, result *models.VideoResult, skipped bool) {
		mu.Lock()
		defer mu.Unlock()

		job.Results[i] = result
		switch {
		case skipped:
			job.Progress.Skipped++
		case result.Playable():
			job.Progress.Completed++
		default:
			job.Progress.Failed++
		}
		bm.updateProgress(job)

		if progress != nil {
			progress(job.Progress.Completed+job.Progress.Failed+job.Progress.Skipped, job.Progress.Total)
		}
	}

	for i, u := range urls {
		acquired := false
		select {
		case semaphore <- struct{}{}:
			acquired = true
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			if acquired {
				<-semaphore
			}
			finish(i, models.FailedResult("", MsgCancelled), true)
			continue
		}

		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			result := bm.resolver.Resolve(ctx, u)
			if result == nil {
				result = models.FailedResult("", models.MsgAllStrategiesFailed)
			}
			finish(i, result, false)

			bm.logger.Debug().
				Str("job_id", job.ID).
				Str("url", u).
				Bool("success", result.Success).
				Msg("Batch item finished")
		}(i, u)
	}

	wg.Wait()

	now := time.Now()
	job.CompletedAt = &now
	bm.updateJobStatus(job, ctx.Err() != nil)

	bm.logger.Info().
		Str("job_id", job.ID).
		Str("status", string(job.Status)).
		Int("completed", job.Progress.Completed).
		Int("failed", job.Progress.Failed).
		Dur("duration", now.Sub(job.StartedAt)).
		Msg("Batch job completed")

	return job
}

// updateProgress updates job progress
func (bm *BatchManager) updateProgress(job *BatchJob) {
	total := float64(job.Progress.Total)
	if total > 0 {
		job.Progress.Percentage = float64(job.Progress.Completed+job.Progress.Failed+job.Progress.Skipped) / total * 100
	}
}

// updateJobStatus updates the final job status
func (bm *BatchManager) updateJobStatus(job *BatchJob, cancelled bool) {
	switch {
	case cancelled && job.Progress.Skipped > 0:
		job.Status = JobStatusCancelled
	case job.Progress.Completed == job.Progress.Total:
		job.Status = JobStatusCompleted
	case job.Progress.Completed > 0:
		job.Status = JobStatusPartial
	default:
		job.Status = JobStatusFailed
	}
}

// ReadURLs reads one URL per line, skipping blank lines and # comments
func ReadURLs(r io.Reader) ([]string, error) {
	var urls []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading URL list: %w", err)
	}

	return urls, nil
}
