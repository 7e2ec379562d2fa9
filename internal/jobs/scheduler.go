// Package jobs runs GPU-creation work under a per-frame budget.
//
// The scheduler is cooperative: Execute runs the job inline on the caller's
// goroutine or refuses it when the frame's budget for that job type is spent.
// Callers keep refused work queued and retry on the next frame.
package jobs

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/logger"
)

// JobType classifies work for budgeting.
type JobType int

const (
	JobTypeBuffer JobType = iota
	JobTypeProgram
	JobTypeTexture
	numJobTypes
)

func (t JobType) String() string {
	switch t {
	case JobTypeBuffer:
		return "buffer"
	case JobTypeProgram:
		return "program"
	case JobTypeTexture:
		return "texture"
	default:
		return fmt.Sprintf("JobType(%d)", int(t))
	}
}

// Job is one unit of GPU-creation work.
type Job interface {
	Execute() error
}

// JobFunc adapts a function to Job.
type JobFunc func() error

// Execute implements Job.
func (f JobFunc) Execute() error { return f() }

// Budget limits how many jobs run per frame. Zero means unlimited.
type Budget struct {
	Total   int
	PerType [numJobTypes]int
}

// Unlimited returns a budget that never refuses work.
func Unlimited() Budget {
	return Budget{}
}

// PerFrame returns a budget allowing n jobs per frame across all types.
func PerFrame(n int) Budget {
	return Budget{Total: n}
}

// Stats counts scheduler activity in the current frame.
type Stats struct {
	Executed [numJobTypes]int
	Refused  [numJobTypes]int
	Failed   int
}

// Ran returns the number of jobs executed this frame.
func (s Stats) Ran() int {
	n := 0
	for _, c := range s.Executed {
		n += c
	}
	return n
}

// Executor is the interface load queues depend on.
type Executor interface {
	Execute(job Job, t JobType) (ran bool, err error)
}

// Scheduler enforces a Budget across the jobs submitted within one frame.
type Scheduler struct {
	budget Budget
	stats  Stats
	frame  uint64
	log    *zap.Logger
}

// NewScheduler returns a scheduler with the given budget.
func NewScheduler(b Budget) *Scheduler {
	return &Scheduler{budget: b, log: logger.Named("jobs")}
}

// SetBudget replaces the budget; it applies from the next Execute.
func (s *Scheduler) SetBudget(b Budget) {
	s.budget = b
}

// BeginFrame resets the per-frame counters. The render loop calls it once
// before updating models.
func (s *Scheduler) BeginFrame() {
	s.frame++
	s.stats = Stats{}
}

// Frame returns the number of BeginFrame calls so far.
func (s *Scheduler) Frame() uint64 {
	return s.frame
}

// Stats returns the counters for the current frame.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// Execute runs job now if budget remains. A job that runs and fails still
// consumes budget; its error is returned with ran=true.
func (s *Scheduler) Execute(job Job, t JobType) (bool, error) {
	if !s.allowed(t) {
		s.stats.Refused[t]++
		return false, nil
	}
	s.stats.Executed[t]++
	if err := job.Execute(); err != nil {
		s.stats.Failed++
		s.log.Debug("job failed", zap.Stringer("type", t), zap.Uint64("frame", s.frame), zap.Error(err))
		return true, err
	}
	return true, nil
}

func (s *Scheduler) allowed(t JobType) bool {
	if s.budget.Total > 0 && s.stats.Ran() >= s.budget.Total {
		return false
	}
	if limit := s.budget.PerType[t]; limit > 0 && s.stats.Executed[t] >= limit {
		return false
	}
	return true
}

// Immediate runs every job synchronously. It backs the non-asynchronous load path.
type Immediate struct{}

// Execute implements Executor.
func (Immediate) Execute(job Job, _ JobType) (bool, error) {
	return true, job.Execute()
}
