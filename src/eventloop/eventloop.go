package eventloop

import (
	"context"
	"log"
	"time"

	"screen-ai-assistant/src/messages"
	"screen-ai-assistant/src/pipeline"
	"screen-ai-assistant/src/worker"
)

const BusyMessage = "busy: an analysis is already running, trigger ignored"

// Runner executes one invocation. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, s pipeline.Settings) pipeline.Outcome
}

// SettingsSource returns the user's current settings. It is read once per
// invocation, at the moment the trigger is accepted.
type SettingsSource interface {
	Snapshot() pipeline.Settings
}

// Loop is the single coordinator between triggers, the worker slot and the
// presentation layer. Background goroutines never touch UI state; they post
// messages to Updates instead.
type Loop struct {
	settings SettingsSource
	slot     *worker.Slot
	triggers chan struct{}
	finished chan pipeline.Outcome
	updates  chan messages.Message
	quit     chan struct{}
	now      func() time.Time
}

func New(settings SettingsSource) *Loop {
	return &Loop{
		settings: settings,
		slot:     worker.New(),
		triggers: make(chan struct{}, 4),
		finished: make(chan pipeline.Outcome, 1),
		updates:  make(chan messages.Message, 256),
		quit:     make(chan struct{}),
		now:      time.Now,
	}
}

// Trigger requests an invocation. It never blocks, so it is safe to call from
// the input hook goroutine; bursts beyond the buffer are dropped.
func (l *Loop) Trigger() {
	select {
	case l.triggers <- struct{}{}:
	default:
		log.Printf("Trigger queue full, dropping")
	}
}

// Updates is the ordered stream of messages for the presentation layer.
func (l *Loop) Updates() <-chan messages.Message { return l.updates }

// Log implements pipeline.Sink.
func (l *Loop) Log(invocationID, text string) {
	l.post(messages.LogLine{InvocationID: invocationID, Text: text, At: l.now()})
}

// Result implements pipeline.Sink.
func (l *Loop) Result(invocationID, text string, isErr bool) {
	l.post(messages.Result{InvocationID: invocationID, Text: text, Err: isErr, At: l.now()})
}

// post blocks until the consumer takes the message so nothing is reordered
// or lost, unless the loop is shutting down.
func (l *Loop) post(m messages.Message) {
	select {
	case l.updates <- m:
	case <-l.quit:
		log.Printf("Event loop stopped, dropping %s update", m.Type())
	}
}

// Run processes triggers until ctx is cancelled, then waits for the
// in-flight invocation (whose context is cancelled too) to finish.
func (l *Loop) Run(ctx context.Context, runner Runner) error {
	defer func() {
		close(l.quit)
		l.slot.Wait()
		log.Printf("Event loop exited")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.triggers:
			l.handleTrigger(ctx, runner)
		case out := <-l.finished:
			log.Printf("handleFinished: invocation %s done (err=%v)", out.ID, out.Err)
			// A trigger handled between the slot release and this message may
			// already have started the next invocation.
			l.post(messages.Status{Busy: l.slot.Busy()})
		}
	}
}

func (l *Loop) handleTrigger(ctx context.Context, runner Runner) {
	if l.slot.Busy() {
		log.Printf("handleTrigger: busy, skipping")
		l.Log("", BusyMessage)
		return
	}

	settings := l.settings.Snapshot()
	var out pipeline.Outcome
	submitted := l.slot.TrySubmitThen(func() {
		out = runner.Run(ctx, settings)
	}, func() {
		// The slot is free again here, so a trigger arriving after the UI
		// sees Busy=false is accepted.
		select {
		case l.finished <- out:
		case <-ctx.Done():
		}
	})
	if !submitted {
		log.Printf("handleTrigger: slot claimed concurrently, skipping")
		l.Log("", BusyMessage)
		return
	}
	l.post(messages.Status{Busy: true})
}
