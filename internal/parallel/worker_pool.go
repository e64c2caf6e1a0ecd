// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package parallel runs bulletin reconstruction over many files at once.
// Parallelism is at document granularity: the engine itself stays
// single-threaded per bulletin.
package parallel

import (
	"context"
	"sync"
	"time"

	"boletim-scan/internal/engine"
	"boletim-scan/internal/observability"
)

// Job represents one bulletin processing task
type Job struct {
	JobID    string
	FilePath string
	Series   engine.Series
}

// Result represents the outcome of one job
type Result struct {
	JobID    string
	FilePath string
	Response *engine.Response
	Error    error
	Duration time.Duration
}

// ProcessFunc turns one job into a response. Implementations handle file
// reading, PDF extraction and classification; the pool only schedules.
type ProcessFunc func(ctx context.Context, job *Job) (*engine.Response, error)

// WorkerPool manages parallel bulletin processing
type WorkerPool struct {
	workers  int
	jobs     chan *Job
	results  chan *Result
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	observer *observability.StandardObserver
	process  ProcessFunc
}

// jobTimeout bounds one bulletin; a stuck PDF must not stall the batch.
const jobTimeout = 5 * time.Minute

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workers int, observer *observability.StandardObserver, process ProcessFunc) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workers:  workers,
		jobs:     make(chan *Job, workers*2),
		results:  make(chan *Result, workers*2),
		ctx:      ctx,
		cancel:   cancel,
		observer: observer,
		process:  process,
	}
}

// Start initializes worker goroutines
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Close signals that no further jobs will be submitted
func (wp *WorkerPool) Close() {
	close(wp.jobs)
}

// Stop waits for in-flight jobs and shuts the pool down. Call Close first.
func (wp *WorkerPool) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Submit adds a job to the queue
func (wp *WorkerPool) Submit(job *Job) {
	select {
	case wp.jobs <- job:
	case <-wp.ctx.Done():
	}
}

// Results returns the results channel
func (wp *WorkerPool) Results() <-chan *Result {
	return wp.results
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processJob(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob executes a single job with a timeout
func (wp *WorkerPool) processJob(job *Job, workerID int) *Result {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if wp.observer != nil {
		finishTiming = wp.observer.StartTiming("worker_pool", "process_job", job.FilePath)
	}

	jobCtx, cancel := context.WithTimeout(wp.ctx, jobTimeout)
	defer cancel()

	resp, err := wp.process(jobCtx, job)
	duration := time.Since(start)

	if finishTiming != nil {
		meta := map[string]interface{}{
			"worker_id":   workerID,
			"duration_ms": duration.Milliseconds(),
		}
		if resp != nil {
			meta["documents"] = resp.Summary.Documents
		}
		finishTiming(err == nil, meta)
	}

	return &Result{
		JobID:    job.JobID,
		FilePath: job.FilePath,
		Response: resp,
		Error:    err,
		Duration: duration,
	}
}

// ProcessFiles is the convenience path for batch runs: it feeds every file
// through the pool and returns results keyed by file path, in no particular
// order.
func ProcessFiles(files []string, series engine.Series, workers int, observer *observability.StandardObserver, process ProcessFunc) []*Result {
	wp := NewWorkerPool(workers, observer, process)
	wp.Start()

	go func() {
		for _, f := range files {
			wp.Submit(&Job{JobID: f, FilePath: f, Series: series})
		}
		wp.Close()
	}()

	done := make(chan struct{})
	var results []*Result
	go func() {
		for r := range wp.Results() {
			results = append(results, r)
		}
		close(done)
	}()

	wp.Stop()
	<-done
	return results
}
