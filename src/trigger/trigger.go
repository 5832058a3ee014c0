package trigger

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	gohook "github.com/robotn/gohook"
)

// enableTimeout bounds the wait for the hook's enabled event at startup.
var enableTimeout = 2 * time.Second

var (
	ErrUnknownButton    = errors.New("unknown trigger button")
	ErrHookUnavailable  = errors.New("global input hook unavailable")
	errNilNotifyHandler = errors.New("trigger: notify callback is required")
)

// Source is the system-wide event feed. The default implementation wraps gohook.
type Source interface {
	Start() chan gohook.Event
	End()
}

type hookSource struct{}

func (hookSource) Start() chan gohook.Event { return gohook.Start() }
func (hookSource) End()                     { gohook.End() }

// Listener observes pointer events on a background goroutine and calls notify
// each time the configured button is pressed. notify must not block.
type Listener struct {
	src     Source
	button  uint16
	notify  func()
	mu      sync.Mutex // serializes notify against Stop
	stopped bool
	once    sync.Once
	done    chan struct{}
}

// Start begins observing global pointer events through gohook.
func Start(button string, notify func()) (*Listener, error) {
	return StartWithSource(hookSource{}, button, notify)
}

// StartWithSource is Start with an injectable event source.
func StartWithSource(src Source, button string, notify func()) (*Listener, error) {
	if notify == nil {
		return nil, errNilNotifyHandler
	}
	code, err := parseButton(button)
	if err != nil {
		return nil, err
	}

	evChan := src.Start()
	if evChan == nil {
		return nil, fmt.Errorf("%w: event channel is nil (missing input permission?)", ErrHookUnavailable)
	}
	if err := awaitEnabled(evChan, enableTimeout); err != nil {
		src.End()
		return nil, err
	}

	l := &Listener{
		src:    src,
		button: code,
		notify: notify,
		done:   make(chan struct{}),
	}
	log.Printf("Trigger listener started for %s button (code %d)", button, code)
	go l.run(evChan)
	return l, nil
}

func (l *Listener) run(evChan chan gohook.Event) {
	defer close(l.done)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in trigger goroutine: %v", r)
		}
	}()

	for ev := range evChan {
		if !isPress(ev) || ev.Button != l.button {
			continue
		}
		l.mu.Lock()
		if !l.stopped {
			log.Printf("Trigger button pressed at (%d,%d)", ev.X, ev.Y)
			l.notify()
		}
		l.mu.Unlock()
	}
	log.Printf("Trigger event channel closed")
}

// awaitEnabled waits for the HookEnabled event libuiohook emits once the
// native hook is running. Without it the hook failed to start (no display,
// no input permission) and the channel stays silent.
func awaitEnabled(evChan chan gohook.Event, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case ev, ok := <-evChan:
			if !ok {
				return fmt.Errorf("%w: event channel closed during startup", ErrHookUnavailable)
			}
			if ev.Kind == gohook.HookEnabled {
				return nil
			}
		case <-deadline.C:
			return fmt.Errorf("%w: no hook-enabled event within %s (missing display or input permission?)", ErrHookUnavailable, timeout)
		}
	}
}

// Stop ends observation. No notification is delivered after Stop returns.
func (l *Listener) Stop() {
	l.once.Do(func() {
		log.Printf("Stopping trigger listener")
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		l.src.End()
	})
}

// Done is closed once the observation goroutine has exited.
func (l *Listener) Done() <-chan struct{} { return l.done }

// gohook.MouseDown carries libuiohook's EVENT_MOUSE_PRESSED; MouseHold is the release.
func isPress(ev gohook.Event) bool {
	return ev.Kind == gohook.MouseDown
}

// parseButton maps a button name to the libuiohook button number.
func parseButton(name string) (uint16, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "left", "button1":
		return 1, nil
	case "right", "button2":
		return 2, nil
	case "middle", "center", "button3":
		return 3, nil
	case "x1", "back", "button4":
		return 4, nil
	case "x2", "forward", "button5":
		return 5, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownButton, name)
	}
}
