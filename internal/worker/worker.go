package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled automation run.
type Job interface {
	Name() string
	Run(ctx context.Context) (domain.Report, error)
}

type funcJob struct {
	name string
	run  func(context.Context) (domain.Report, error)
}

func (j funcJob) Name() string { return j.name }

func (j funcJob) Run(ctx context.Context) (domain.Report, error) { return j.run(ctx) }

// NewJob wraps an engine entry point, e.g. NewJob("periodic", engine.RunPeriodic).
func NewJob(name string, run func(context.Context) (domain.Report, error)) Job {
	return funcJob{name: name, run: run}
}

// Options configures the worker.
type Options struct {
	Schedule string
	Location *time.Location
	Timeout  time.Duration
}

// Worker is de achtergrond-processor die de dagelijkse scans start.
type Worker struct {
	jobs    []Job
	logger  *zap.Logger
	opts    Options
	cron    *cron.Cron
	running sync.Mutex
	wg      sync.WaitGroup
}

// NewWorker validates the cron expression and builds the scheduler. Jobs run in the given
// order, one after the other.
func NewWorker(log *zap.Logger, opts Options, jobs ...Job) (*Worker, error) {
	if len(jobs) == 0 {
		return nil, errors.New("worker heeft minstens één job nodig")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}

	w := &Worker{
		jobs:   jobs,
		logger: log.With(zap.String("component", "worker")),
		opts:   opts,
		cron:   cron.New(cron.WithLocation(opts.Location)),
	}

	if _, err := w.cron.AddFunc(opts.Schedule, w.doWork); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", opts.Schedule, err)
	}
	return w, nil
}

// Start lanceert de scheduler in een aparte goroutine.
func (w *Worker) Start() {
	w.logger.Info("starting worker",
		zap.String("schedule", w.opts.Schedule),
		zap.String("timezone", w.opts.Location.String()))
	w.cron.Start()
}

// Stop stops the scheduler and waits for a running cycle to finish.
func (w *Worker) Stop() {
	<-w.cron.Stop().Done()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// doWork runs one cycle. A cycle that fires while the previous one is still busy is skipped.
func (w *Worker) doWork() {
	if !w.running.TryLock() {
		w.logger.Warn("previous cycle still running, skipping")
		return
	}
	defer w.running.Unlock()

	w.wg.Add(1)
	defer w.wg.Done()

	start := time.Now()
	w.logger.Info("running work cycle")

	for _, job := range w.jobs {
		w.runJob(job)
	}

	logger.LogDuration(w.logger, "work_cycle", start)
}

// runJob geeft elke job een eigen deadline
func (w *Worker) runJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), w.opts.Timeout)
	defer cancel()

	name := job.Name()
	report, err := job.Run(ctx)
	if err != nil {
		w.logger.Error("scheduled run failed", zap.String("job", name), zap.Error(err))
		return
	}
	w.logger.Info("scheduled run finished",
		zap.String("job", name),
		zap.String("message", report.Message),
		zap.Int("executed", report.Executed),
		zap.Int("results", len(report.Results)))
}
