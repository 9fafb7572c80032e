package task

import (
	"time"

	"github.com/cortexagents/bdi/model"
)

// SleepTask suspends for a fixed duration, waking on the matching timer
// fire event.
type SleepTask struct {
	id       int
	duration time.Duration

	started bool
	fired   bool
}

// NewSleepTask builds a Sleep task for the given duration.
func NewSleepTask(id int, d time.Duration) *SleepTask {
	return &SleepTask{id: id, duration: d}
}

func (s *SleepTask) ID() int      { return s.id }
func (s *SleepTask) NoWait() bool { return false }

func (s *SleepTask) Reset() {
	s.started = false
	s.fired = false
}

// Complete delivers the timer-fire signal; reply is always nil for Sleep.
func (s *SleepTask) Complete(success bool, _ *model.Message) {
	s.fired = true
}

func (s *SleepTask) Tick(env Env) Outcome {
	if !s.started {
		s.started = true
		env.StartTimer(s.id, s.duration)
		return waiting()
	}
	if s.fired {
		return done(true)
	}
	return waiting()
}
