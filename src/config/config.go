package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	APIKeyEnvVar         = "DASHSCOPE_API_KEY"
	EnvPathEnvVar        = "SCREEN_AI_ENV"
	DefaultVisionBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultVisionModel   = "qwen-vl-plus"
	DefaultTriggerButton = "middle"

	DefaultPrompt = "Please analyze this screenshot and answer the following questions:\n" +
		"1. What type of interface is this?\n" +
		"2. What is its main function?\n" +
		"3. What could be improved?"
)

// ErrMissingAPIKey is returned by Validate when the vision credential is absent.
var ErrMissingAPIKey = errors.New(APIKeyEnvVar + " is not set")

type LoadOptions struct {
	// EnvPathOverride points at a dotenv file that wins over every other location.
	EnvPathOverride string
}

type Config struct {
	APIKey              string
	VisionBaseURL       string
	VisionModel         string
	AnalysisDeadlineSec int

	TelegramToken     string
	TelegramChatID    string
	TelegramEnabled   bool
	TelegramSendImage bool

	TriggerButton     string
	ArtifactDir       string
	DefaultPrompt     string
	CopyToClipboard   bool
	EnableFileLogging bool
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) explicit override
	// 2) .env next to the executable
	// 3) .env in the working directory
	// 4) SCREEN_AI_ENV as a path to a dotenv file
	// godotenv.Load never overrides variables already present in the process environment.
	if envPath := resolveEnvPath(opts); envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		APIKey:              strings.TrimSpace(os.Getenv(APIKeyEnvVar)),
		VisionBaseURL:       getEnvWithDefault("VISION_BASE_URL", DefaultVisionBaseURL),
		VisionModel:         getEnvWithDefault("VISION_MODEL", DefaultVisionModel),
		AnalysisDeadlineSec: getEnvInt("ANALYSIS_DEADLINE_SEC", 0),
		TelegramToken:       strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		TelegramChatID:      strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")),
		TelegramEnabled:     getEnvBool("TELEGRAM_ENABLED", false),
		TelegramSendImage:   getEnvBool("TELEGRAM_SEND_IMAGE", true),
		TriggerButton:       getEnvWithDefault("TRIGGER_BUTTON", DefaultTriggerButton),
		ArtifactDir:         getEnvWithDefault("ARTIFACT_DIR", "."),
		DefaultPrompt:       DefaultPrompt,
		CopyToClipboard:     getEnvBool("COPY_RESULT_TO_CLIPBOARD", false),
		EnableFileLogging:   getEnvBool("ENABLE_FILE_LOGGING", false),
	}

	return cfg, nil
}

// Validate checks presence of the vision credential only.
func (c *Config) Validate() error {
	if c == nil || c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func resolveEnvPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.EnvPathOverride); override != "" {
		if _, err := os.Stat(override); err == nil {
			return override
		}
	}

	candidates := []string{}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), ".env"))
	}
	candidates = append(candidates, ".env")
	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		candidates = append(candidates, alt)
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}
