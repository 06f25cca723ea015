// Package gametest holds helpers shared by the engine tests.
package gametest

import (
	"sort"
	"time"
)

type task struct {
	at        time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// ManualScheduler is a game.Scheduler driven by Advance instead of wall time.
type ManualScheduler struct {
	now   time.Duration
	seq   int
	tasks []*task
}

// After queues fn to run once Advance moves the clock past d.
func (s *ManualScheduler) After(d time.Duration, fn func()) func() {
	s.seq++
	t := &task{at: s.now + d, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, t)
	return func() { t.cancelled = true }
}

// Pending counts tasks that have neither fired nor been cancelled.
func (s *ManualScheduler) Pending() int {
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running every due task in order.
// Tasks scheduled by a running task fire in the same call when due.
func (s *ManualScheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		next := s.nextDue(target)
		if next == nil {
			break
		}
		s.now = next.at
		next.cancelled = true
		next.fn()
	}
	s.now = target
}

// RunAll fires tasks until none remain.
func (s *ManualScheduler) RunAll() {
	for s.Pending() > 0 {
		s.Advance(time.Hour)
	}
}

func (s *ManualScheduler) nextDue(limit time.Duration) *task {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	s.tasks = live
	sort.SliceStable(s.tasks, func(i, j int) bool {
		if s.tasks[i].at == s.tasks[j].at {
			return s.tasks[i].seq < s.tasks[j].seq
		}
		return s.tasks[i].at < s.tasks[j].at
	})
	if len(s.tasks) == 0 || s.tasks[0].at > limit {
		return nil
	}
	return s.tasks[0]
}
