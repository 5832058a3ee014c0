package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"screen-ai-assistant/src/artifact"
	"screen-ai-assistant/src/config"
	"screen-ai-assistant/src/delivery"
	"screen-ai-assistant/src/llm"
	"screen-ai-assistant/src/logutil"
)

const defaultDeliveryTimeout = 60 * time.Second

type CaptureFunc func() (image.Image, error)

type AnalyzeFunc func(ctx context.Context, req llm.Request) (string, error)

type DeliverFunc func(ctx context.Context, creds delivery.Credentials, p delivery.Payload) (string, error)

type CopyFunc func(text string) error

// Sink receives progress lines and results. Implementations must not block
// for long and must not touch UI state directly.
type Sink interface {
	Log(invocationID, text string)
	Result(invocationID, text string, isErr bool)
}

type Options struct {
	Config          *config.Config
	Capture         CaptureFunc
	Analyze         AnalyzeFunc // may be nil only when Config has no API key
	Deliver         DeliverFunc
	CopyResult      CopyFunc
	Sink            Sink
	DeliveryTimeout time.Duration
	Now             func() time.Time
}

// Settings is the user-controlled input of one invocation, read on demand
// from the presentation layer.
type Settings struct {
	Prompt      string
	Deliver     bool
	AttachImage bool
	Credentials delivery.Credentials
}

// Outcome summarizes one invocation for callers that want it; the sink has
// already been told everything.
type Outcome struct {
	ID   string
	Text string
	Err  error
}

type Pipeline struct {
	opts       Options
	deliveries sync.WaitGroup
}

func New(opts Options) (*Pipeline, error) {
	if opts.Config == nil {
		return nil, errors.New("Config is required")
	}
	if opts.Capture == nil {
		return nil, errors.New("Capture is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("Sink is required")
	}
	if opts.Analyze == nil && opts.Config.Validate() == nil {
		return nil, errors.New("Analyze is required when an API key is configured")
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = defaultDeliveryTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{opts: opts}, nil
}

// Run performs one capture-analyze-deliver invocation. It never panics and
// never returns an error to the caller; failures are reported to the sink.
func (p *Pipeline) Run(ctx context.Context, s Settings) (out Outcome) {
	id := uuid.NewString()[:8]
	out.ID = id
	log.Printf("Pipeline[%s]: invocation started", id)

	// The credential is checked before any I/O so a misconfigured run
	// neither captures the screen nor touches the network.
	if err := p.opts.Config.Validate(); err != nil {
		log.Printf("Pipeline[%s]: %v", id, err)
		p.opts.Sink.Log(id, fmt.Sprintf("error: %v, set it in the environment or .env file", err))
		out.Err = err
		return out
	}

	var (
		art        *artifact.Artifact
		resultSent bool
	)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Pipeline[%s]: PANIC: %v", id, r)
			if resultSent {
				// The result stands; only the post-result step failed.
				p.opts.Sink.Log(id, fmt.Sprintf("error: internal error after result: %v", r))
			} else {
				err := fmt.Errorf("internal error: %v", r)
				p.fail(id, err)
				out.Text, out.Err = "", err
			}
		}
		if art != nil {
			if err := art.Remove(); err != nil {
				log.Printf("Pipeline[%s]: failed to remove %s: %v", id, art.Path, err)
				p.opts.Sink.Log(id, fmt.Sprintf("failed to remove artifact %s: %v", art.Name, err))
			} else {
				p.opts.Sink.Log(id, "artifact cleaned up")
			}
		}
		log.Printf("Pipeline[%s]: invocation finished (err=%v)", id, out.Err)
	}()

	text, shot, err := p.captureAndAnalyze(ctx, id, s.Prompt, &art)
	if err != nil {
		p.fail(id, err)
		out.Err = err
		return out
	}
	out.Text = text
	p.opts.Sink.Result(id, text, false)
	resultSent = true

	if p.opts.Config.CopyToClipboard && p.opts.CopyResult != nil {
		if err := p.opts.CopyResult(text); err != nil {
			p.opts.Sink.Log(id, fmt.Sprintf("clipboard error: %v", err))
		} else {
			p.opts.Sink.Log(id, "result copied to clipboard")
		}
	}

	if s.Deliver {
		payload := delivery.Payload{Text: text}
		if s.AttachImage {
			payload.Image = shot
			payload.ImageName = art.Name
		}
		p.startDelivery(id, s.Credentials, payload)
	}
	return out
}

// captureAndAnalyze covers capture, persistence, encoding and the remote call.
func (p *Pipeline) captureAndAnalyze(ctx context.Context, id, prompt string, art **artifact.Artifact) (string, []byte, error) {
	p.opts.Sink.Log(id, "capture started")
	img, err := p.opts.Capture()
	if err != nil {
		return "", nil, fmt.Errorf("screen capture failed: %w", err)
	}

	a, err := artifact.Write(p.opts.Config.ArtifactDir, img, p.opts.Now())
	if err != nil {
		return "", nil, err
	}
	*art = a
	p.opts.Sink.Log(id, "capture saved: "+a.Name)

	data, err := a.Bytes()
	if err != nil {
		return "", nil, err
	}

	if sec := p.opts.Config.AnalysisDeadlineSec; sec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(sec)*time.Second)
		defer cancel()
	}

	p.opts.Sink.Log(id, fmt.Sprintf("calling analysis API (%s)", p.opts.Config.VisionModel))
	start := time.Now()
	text, err := p.opts.Analyze(ctx, llm.Request{Prompt: prompt, ImagePNG: data})
	if err != nil {
		return "", nil, err
	}
	log.Printf("Pipeline[%s]: analysis took %s, %d chars: %q", id, time.Since(start).Round(time.Millisecond), len(text), logutil.Preview(text, 100))
	p.opts.Sink.Log(id, "analysis complete")
	return text, data, nil
}

func (p *Pipeline) fail(id string, err error) {
	msg := fmt.Sprintf("error: %v", err)
	log.Printf("Pipeline[%s]: %s", id, msg)
	p.opts.Sink.Log(id, msg)
	p.opts.Sink.Result(id, msg, true)
}

// startDelivery runs delivery as its own task; the result it forwards is
// already final and the payload holds the image in memory, not the file.
func (p *Pipeline) startDelivery(id string, creds delivery.Credentials, payload delivery.Payload) {
	if !creds.Configured() {
		p.opts.Sink.Log(id, fmt.Sprintf("delivery skipped: %v", delivery.ErrNotConfigured))
		return
	}
	if p.opts.Deliver == nil {
		p.opts.Sink.Log(id, "delivery skipped: no delivery channel available")
		return
	}

	p.opts.Sink.Log(id, "delivery started")
	p.deliveries.Add(1)
	go func() {
		defer p.deliveries.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Pipeline[%s]: PANIC in delivery: %v", id, r)
				p.opts.Sink.Log(id, fmt.Sprintf("delivery failed: %v", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), p.opts.DeliveryTimeout)
		defer cancel()
		status, err := p.opts.Deliver(ctx, creds, payload)
		if err != nil {
			log.Printf("Pipeline[%s]: delivery failed: %v", id, err)
			p.opts.Sink.Log(id, fmt.Sprintf("delivery failed: %v", err))
			return
		}
		p.opts.Sink.Log(id, "delivery complete: "+status)
	}()
}

// WaitDeliveries blocks until every delivery task started so far has finished.
func (p *Pipeline) WaitDeliveries() {
	p.deliveries.Wait()
}
