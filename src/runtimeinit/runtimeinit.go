package runtimeinit

import (
	"errors"
	"fmt"
	"log"

	"screen-ai-assistant/src/config"
	"screen-ai-assistant/src/delivery"
	"screen-ai-assistant/src/llm"
	"screen-ai-assistant/src/logutil"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// RequireAPIKey makes a missing vision credential fatal. The resident app
	// leaves it false and reports the problem per invocation instead.
	RequireAPIKey bool
}

// Runtime is the wired set of collaborators shared by the app and the CLI.
type Runtime struct {
	Config *config.Config
	// Vision is nil when no API key is configured.
	Vision   *llm.Client
	Telegram *delivery.Telegram
}

// TelegramCredentials returns the bot credentials from configuration.
func (r *Runtime) TelegramCredentials() delivery.Credentials {
	return delivery.Credentials{Token: r.Config.TelegramToken, ChatID: r.Config.TelegramChatID}
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	rt := &Runtime{Config: cfg, Telegram: &delivery.Telegram{}}

	if err := cfg.Validate(); err != nil {
		if opts.RequireAPIKey {
			return nil, fmt.Errorf("%w. Set it in the environment or a .env file", err)
		}
		log.Printf("Warning: %v; captures will be rejected until it is set", err)
		return rt, nil
	}

	rt.Vision, err = llm.New(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.VisionBaseURL,
		Model:   cfg.VisionModel,
	})
	if err != nil {
		if errors.Is(err, llm.ErrMissingModel) {
			return nil, fmt.Errorf("VISION_MODEL is required: %w", err)
		}
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	log.Printf("Vision client ready: model=%s base=%s key=%s", cfg.VisionModel, cfg.VisionBaseURL, logutil.RedactKey(cfg.APIKey))
	return rt, nil
}
