package trigger

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gohook "github.com/robotn/gohook"
)

type fakeSource struct {
	ch    chan gohook.Event
	nilCh bool
	once  sync.Once
	ended atomic.Bool
}

// newFakeSource returns a source whose hook reports itself enabled.
func newFakeSource() *fakeSource {
	f := &fakeSource{ch: make(chan gohook.Event, 16)}
	f.ch <- gohook.Event{Kind: gohook.HookEnabled}
	return f
}

func (f *fakeSource) Start() chan gohook.Event {
	if f.nilCh {
		return nil
	}
	return f.ch
}

func (f *fakeSource) End() {
	f.once.Do(func() {
		f.ended.Store(true)
		close(f.ch)
	})
}

func TestParseButton(t *testing.T) {
	tests := []struct {
		name    string
		want    uint16
		wantErr bool
	}{
		{"left", 1, false},
		{"Right", 2, false},
		{"middle", 3, false},
		{"center", 3, false},
		{" MIDDLE ", 3, false},
		{"x1", 4, false},
		{"x2", 5, false},
		{"wheel", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseButton(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseButton(%q) err = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownButton) {
				t.Errorf("expected ErrUnknownButton, got %v", err)
			}
			if got != tt.want {
				t.Errorf("parseButton(%q) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestListenerNotifiesOnlyOnTriggerPress(t *testing.T) {
	src := newFakeSource()
	var count atomic.Int32
	notified := make(chan struct{}, 4)
	l, err := StartWithSource(src, "middle", func() {
		count.Add(1)
		notified <- struct{}{}
	})
	if err != nil {
		t.Fatalf("StartWithSource: %v", err)
	}

	src.ch <- gohook.Event{Kind: gohook.MouseMove}
	src.ch <- gohook.Event{Kind: gohook.MouseDown, Button: 1} // left press
	src.ch <- gohook.Event{Kind: gohook.MouseHold, Button: 3} // middle release
	src.ch <- gohook.Event{Kind: gohook.KeyDown, Rawcode: 81}
	src.ch <- gohook.Event{Kind: gohook.MouseDown, Button: 3} // middle press

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification for the middle press")
	}

	l.Stop()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("listener goroutine did not exit after Stop")
	}

	if got := count.Load(); got != 1 {
		t.Errorf("notify called %d times, want 1", got)
	}
	if !src.ended.Load() {
		t.Error("expected source to be ended")
	}
}

func TestListenerSilentAfterStop(t *testing.T) {
	src := &fakeSource{ch: make(chan gohook.Event, 1)}
	src.ch <- gohook.Event{Kind: gohook.HookEnabled}
	var count atomic.Int32
	l, err := StartWithSource(src, "middle", func() { count.Add(1) })
	if err != nil {
		t.Fatalf("StartWithSource: %v", err)
	}

	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	src.ch <- gohook.Event{Kind: gohook.MouseDown, Button: 3}
	l.Stop()
	l.Stop() // idempotent
	<-l.Done()

	if got := count.Load(); got != 0 {
		t.Errorf("notify called %d times after stop, want 0", got)
	}
}

func TestPressNotReleaseTriggers(t *testing.T) {
	// libuiohook ids: 7 is EVENT_MOUSE_PRESSED, 8 is EVENT_MOUSE_RELEASED.
	if !isPress(gohook.Event{Kind: 7, Button: 3}) {
		t.Error("button press (kind 7) must count as a press")
	}
	if isPress(gohook.Event{Kind: 8, Button: 3}) {
		t.Error("button release (kind 8) must not count as a press")
	}

	src := newFakeSource()
	notified := make(chan struct{}, 4)
	l, err := StartWithSource(src, "middle", func() { notified <- struct{}{} })
	if err != nil {
		t.Fatalf("StartWithSource: %v", err)
	}
	defer l.Stop()

	src.ch <- gohook.Event{Kind: 8, Button: 3}
	src.ch <- gohook.Event{Kind: 7, Button: 3}
	src.ch <- gohook.Event{Kind: 8, Button: 3}
	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification for the press")
	}
	select {
	case <-notified:
		t.Error("release produced a second notification")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStartFailsWhenHookNeverEnables(t *testing.T) {
	old := enableTimeout
	enableTimeout = 50 * time.Millisecond
	defer func() { enableTimeout = old }()

	src := &fakeSource{ch: make(chan gohook.Event, 4)}
	src.ch <- gohook.Event{Kind: gohook.MouseMove}
	l, err := StartWithSource(src, "middle", func() {})
	if !errors.Is(err, ErrHookUnavailable) {
		t.Fatalf("expected ErrHookUnavailable, got %v (listener %v)", err, l)
	}
	if !src.ended.Load() {
		t.Error("hook not ended after failed startup")
	}
}

func TestStartFailsWhenChannelCloses(t *testing.T) {
	src := &fakeSource{ch: make(chan gohook.Event)}
	src.End()
	if _, err := StartWithSource(src, "middle", func() {}); !errors.Is(err, ErrHookUnavailable) {
		t.Errorf("expected ErrHookUnavailable, got %v", err)
	}
}

func TestStartFailsFast(t *testing.T) {
	if _, err := StartWithSource(&fakeSource{nilCh: true}, "middle", func() {}); !errors.Is(err, ErrHookUnavailable) {
		t.Errorf("expected ErrHookUnavailable, got %v", err)
	}
	if _, err := StartWithSource(newFakeSource(), "wheel", func() {}); !errors.Is(err, ErrUnknownButton) {
		t.Errorf("expected ErrUnknownButton, got %v", err)
	}
	if _, err := StartWithSource(newFakeSource(), "middle", nil); err == nil {
		t.Error("expected error for nil notify")
	}
}
