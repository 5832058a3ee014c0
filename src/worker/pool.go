package worker

import (
	"log"
	"sync"
	"sync/atomic"
)

// Slot runs at most one job at a time. A submission while a job is in flight
// is dropped rather than queued.
type Slot struct {
	busy atomic.Bool
	wg   sync.WaitGroup
}

func New() *Slot {
	return &Slot{}
}

// TrySubmit starts job on its own goroutine if the slot is free. Returns false if dropped.
// The slot is claimed atomically, so two racing triggers cannot both start a job.
func (s *Slot) TrySubmit(job func()) bool {
	return s.TrySubmitThen(job, nil)
}

// TrySubmitThen is TrySubmit with a callback that runs on the job goroutine
// after the slot has been released, so then may observe Busy() == false.
func (s *Slot) TrySubmitThen(job, then func()) bool {
	if !s.busy.CompareAndSwap(false, true) {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(job)
		s.busy.Store(false)
		if then != nil {
			s.run(then)
		}
	}()
	return true
}

func (s *Slot) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker: job panicked: %v", r)
		}
	}()
	fn()
}

// Busy reports whether a job is in flight.
func (s *Slot) Busy() bool { return s.busy.Load() }

// Wait blocks until the current job, if any, has finished.
func (s *Slot) Wait() { s.wg.Wait() }
