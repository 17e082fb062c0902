package scheduler

import (
	"github.com/robfig/cron/v3"

	"currency-converter/pkg/logger"
)

type Job interface {
	Run() error
	Name() string
}

type funcJob struct {
	name string
	fn   func() error
}

func (j funcJob) Run() error   { return j.fn() }
func (j funcJob) Name() string { return j.name }

// NewJob adapts a plain function to Job.
func NewJob(name string, fn func() error) Job {
	return funcJob{name: name, fn: fn}
}

// Scheduler runs background maintenance jobs on cron schedules.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger
}

func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With("component", "scheduler"),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}

// AddJob registers job under a standard cron expression or a descriptor such as
// "@every 5m".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug("Running job", "job", job.Name())

		if err := job.Run(); err != nil {
			s.log.Error("Job failed", "error", err, "job", job.Name())
		} else {
			s.log.Debug("Job completed", "job", job.Name())
		}
	})
	if err != nil {
		return err
	}

	s.log.Info("Job registered", "schedule", schedule, "job", job.Name())
	return nil
}
