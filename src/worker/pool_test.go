package worker

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestSlotDropsWhenBusy(t *testing.T) {
	s := New()
	release := make(chan struct{})
	started := make(chan struct{})

	ok := s.TrySubmit(func() {
		close(started)
		<-release
	})
	if !ok {
		t.Fatal("first submit should succeed")
	}
	<-started
	if !s.Busy() {
		t.Error("expected slot to be busy")
	}

	var ran atomic.Bool
	if s.TrySubmit(func() { ran.Store(true) }) {
		t.Error("second submit should be dropped while the first is running")
	}

	close(release)
	s.Wait()
	if s.Busy() {
		t.Error("expected slot to be free after Wait")
	}
	if ran.Load() {
		t.Error("dropped job must not run")
	}

	done := make(chan struct{})
	if !s.TrySubmit(func() { close(done) }) {
		t.Fatal("submit after completion should succeed")
	}
	<-done
	s.Wait()
}

func TestSlotAtMostOneUnderContention(t *testing.T) {
	s := New()
	release := make(chan struct{})
	var running, maxRunning, accepted atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TrySubmit(func() {
				n := running.Add(1)
				for {
					m := maxRunning.Load()
					if n <= m || maxRunning.CompareAndSwap(m, n) {
						break
					}
				}
				<-release
				running.Add(-1)
			}) {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	close(release)
	s.Wait()

	if accepted.Load() != 1 {
		t.Errorf("accepted %d submissions, want exactly 1", accepted.Load())
	}
	if maxRunning.Load() > 1 {
		t.Errorf("observed %d concurrent jobs", maxRunning.Load())
	}
}

func TestSlotRecoversPanics(t *testing.T) {
	s := New()
	if !s.TrySubmit(func() { panic("boom") }) {
		t.Fatal("submit should succeed")
	}
	s.Wait()
	if s.Busy() {
		t.Error("slot should be released after a panicking job")
	}
}

func TestSlotReleasedBeforeThen(t *testing.T) {
	s := New()
	busyInThen := make(chan bool, 1)
	if !s.TrySubmitThen(func() {}, func() { busyInThen <- s.Busy() }) {
		t.Fatal("submit should succeed")
	}
	if <-busyInThen {
		t.Error("slot still busy when the completion callback ran")
	}
	s.Wait()
}

func TestSlotThenRunsAfterPanic(t *testing.T) {
	s := New()
	ran := make(chan struct{})
	s.TrySubmitThen(func() { panic("boom") }, func() { close(ran) })
	<-ran
	s.Wait()
	if s.Busy() {
		t.Error("slot still busy after panicking job")
	}
}
