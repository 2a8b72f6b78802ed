package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// BatchItem is the outcome of one job
type BatchItem struct {
	Job    Job     `json:"job"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// BatchResult collects the outcome of every job in submission order
type BatchResult struct {
	Items   []BatchItem   `json:"items"`
	Elapsed time.Duration `json:"elapsed"`
}

// Succeeded returns the number of jobs that completed
func (b *BatchResult) Succeeded() int {
	n := 0
	for _, item := range b.Items {
		if item.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of jobs that failed
func (b *BatchResult) Failed() int {
	return len(b.Items) - b.Succeeded()
}

// Err joins every job error, nil when all jobs succeeded
func (b *BatchResult) Err() error {
	var errs []error
	for _, item := range b.Items {
		if item.Err != nil {
			errs = append(errs, item.Err)
		}
	}
	return errors.Join(errs...)
}

// ProcessBatch runs jobs one after another. A failing job is recorded and
// the batch moves on; cancellation marks the remaining jobs as failed.
func (d *Driver) ProcessBatch(ctx context.Context, jobs []Job) *BatchResult {
	start := time.Now()
	batch := &BatchResult{Items: make([]BatchItem, 0, len(jobs))}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			batch.Items = append(batch.Items, BatchItem{Job: job, Err: stageError("", job.Input, err)})
			continue
		}

		result, err := d.Process(ctx, job)
		if err != nil {
			d.logger.Error(err, "Failed to process file", logging.Fields{
				"input": job.Input,
			})
		}
		batch.Items = append(batch.Items, BatchItem{Job: job, Result: result, Err: err})
	}

	batch.Elapsed = time.Since(start)
	d.logger.Debug("Batch finished", logging.Fields{
		"jobs":      len(jobs),
		"succeeded": batch.Succeeded(),
		"failed":    batch.Failed(),
		"elapsed_s": batch.Elapsed.Seconds(),
	})
	return batch
}
