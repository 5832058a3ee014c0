package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"screen-ai-assistant/src/clipboard"
	"screen-ai-assistant/src/eventloop"
	"screen-ai-assistant/src/gui"
	"screen-ai-assistant/src/logutil"
	"screen-ai-assistant/src/pipeline"
	"screen-ai-assistant/src/platform"
	"screen-ai-assistant/src/runtimeinit"
	"screen-ai-assistant/src/screenshot"
	"screen-ai-assistant/src/trigger"
)

const (
	deliveryDrainTimeout = 5 * time.Second
	listenerStopTimeout  = 2 * time.Second
)

func main() {
	// Before any window exists, so capture coordinates are physical pixels.
	platform.EnableDPIAwareness()

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{SetupLogging: logutil.Setup})
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}
	cfg := rt.Config
	platform.LogDisplayMetrics()
	if err := clipboard.Init(); err != nil {
		log.Printf("Clipboard unavailable: %v", err)
	}

	log.Printf("Screen AI Assistant initialized")
	log.Printf("Model: %s", cfg.VisionModel)
	log.Printf("Trigger button: %s", cfg.TriggerButton)
	log.Printf("Analysis deadline: %ds (0 = none)", cfg.AnalysisDeadlineSec)

	settings := gui.NewSettingsStore(pipeline.Settings{
		Prompt:      cfg.DefaultPrompt,
		Deliver:     cfg.TelegramEnabled,
		AttachImage: cfg.TelegramSendImage,
		Credentials: rt.TelegramCredentials(),
	})
	loop := eventloop.New(settings)
	p, err := newPipeline(rt, loop)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx, p) })

	var listener *trigger.Listener
	win := gui.New(gui.Options{
		Settings:  settings,
		Updates:   loop.Updates(),
		OnCapture: loop.Trigger,
		OnClose: func() {
			// Listener first so no trigger lands on a stopping loop.
			if listener != nil {
				listener.Stop()
			}
			cancel()
		},
	})

	listener, err = trigger.Start(cfg.TriggerButton, loop.Trigger)
	if err != nil {
		log.Printf("Trigger listener failed to start: %v", err)
		loop.Log("", fmt.Sprintf("error: trigger listener failed to start: %v (use Capture now instead)", err))
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			win.Close()
		case <-ctx.Done():
		}
	}()

	win.ShowAndRun(gctx)

	cancel()
	if listener != nil {
		listener.Stop()
		select {
		case <-listener.Done():
		case <-time.After(listenerStopTimeout):
			log.Printf("Trigger listener did not exit within %s", listenerStopTimeout)
		}
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Event loop stopped: %v", err)
	}
	waitDeliveries(p, deliveryDrainTimeout)
	log.Printf("Exited")
}

// newPipeline wires the runtime's collaborators into one pipeline reporting to sink.
func newPipeline(rt *runtimeinit.Runtime, sink pipeline.Sink) (*pipeline.Pipeline, error) {
	var analyze pipeline.AnalyzeFunc
	if rt.Vision != nil {
		analyze = rt.Vision.Describe
	}
	return pipeline.New(pipeline.Options{
		Config:     rt.Config,
		Capture:    captureScreen,
		Analyze:    analyze,
		Deliver:    rt.Telegram.Send,
		CopyResult: clipboard.Write,
		Sink:       sink,
	})
}

func captureScreen() (image.Image, error) {
	img, err := screenshot.Capture()
	if err != nil {
		return nil, err
	}
	return img, nil
}

// waitDeliveries gives in-flight Telegram sends a bounded chance to finish.
func waitDeliveries(p *pipeline.Pipeline, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		p.WaitDeliveries()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("Gave up waiting for deliveries after %s", timeout)
	}
}
