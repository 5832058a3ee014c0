package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screen-ai-assistant/src/config"
	"screen-ai-assistant/src/delivery"
	"screen-ai-assistant/src/llm"
	"screen-ai-assistant/src/logutil"
	"screen-ai-assistant/src/runtimeinit"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	filePath string
	prompt   string
	envPath  string
	json     bool
	verbose  bool
	telegram bool
}

// streams keeps the command testable without touching the process's stdio.
type streams struct {
	in       io.Reader
	out, err io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := runWithArgs(ctx, os.Args, streams{in: os.Stdin, out: os.Stdout, err: os.Stderr}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(ctx context.Context, args []string, s streams) error {
	if len(args) == 0 {
		args = []string{"screen-ai-cli"}
	}
	opts := &cliOptions{}
	cmd := newRootCmd(opts, s)
	cmd.SetArgs(args[1:])
	cmd.SetOut(s.out)
	cmd.SetErr(s.err)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(opts *cliOptions, s streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-ai-cli",
		Short:         "Analyze an existing PNG with the vision model",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, s)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "Analysis prompt (default: the built-in three-question prompt)")
	cmd.Flags().StringVar(&opts.envPath, "env", "", "Path to a .env file (highest precedence)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().BoolVar(&opts.telegram, "telegram", false, "Also forward the result to the configured Telegram chat")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(ctx context.Context, opts cliOptions, s streams) error {
	// Logging is configured before anything else can write to it.
	if opts.verbose {
		log.SetOutput(s.err)
		fmt.Fprintf(s.err, "[verbose] Starting analysis\n")
	} else {
		log.SetOutput(io.Discard)
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:   config.LoadOptions{EnvPathOverride: opts.envPath},
		RequireAPIKey: true,
	})
	if err != nil {
		return err
	}
	cfg := rt.Config
	if opts.verbose {
		fmt.Fprintf(s.err, "[verbose] Config loaded: model=%s base=%s key=%s\n",
			cfg.VisionModel, cfg.VisionBaseURL, logutil.RedactKey(cfg.APIKey))
	}

	imageData, err := readImage(opts.filePath, s.in)
	if err != nil {
		return err
	}
	if opts.verbose {
		fmt.Fprintf(s.err, "[verbose] Read %d bytes, PNG validation passed\n", len(imageData))
	}

	prompt := opts.prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = cfg.DefaultPrompt
	}
	if sec := cfg.AnalysisDeadlineSec; sec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(sec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	text, err := rt.Vision.Describe(ctx, llm.Request{Prompt: prompt, ImagePNG: imageData})
	elapsed := time.Since(start)
	if err != nil {
		if opts.verbose {
			fmt.Fprintf(s.err, "[verbose] Analysis failed after %v: %v\n", elapsed, err)
		}
		return err
	}
	if opts.verbose {
		fmt.Fprintf(s.err, "[verbose] Analysis completed in %v, %d characters\n", elapsed, len(text))
	}

	if err := writeResult(s.out, text, opts.filePath, cfg.VisionModel, elapsed, opts.json); err != nil {
		return err
	}

	if !opts.telegram {
		return nil
	}
	payload := delivery.Payload{Text: text}
	if cfg.TelegramSendImage {
		payload.Image = imageData
		payload.ImageName = "screenshot.png"
	}
	status, err := rt.Telegram.Send(ctx, rt.TelegramCredentials(), payload)
	if err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(s.err, "[verbose] Delivery: %s\n", status)
	}
	return nil
}

func readImage(path string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if err := validatePNG(data); err != nil {
		return nil, err
	}
	return data, nil
}

func validatePNG(data []byte) error {
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	return nil
}

type AnalysisResult struct {
	Text      string  `json:"text"`
	Source    string  `json:"source"`
	Model     string  `json:"model"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	CharCount int     `json:"character_count"`
}

func writeResult(w io.Writer, text, source, model string, elapsed time.Duration, asJSON bool) error {
	if !asJSON {
		_, err := fmt.Fprint(w, text)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(AnalysisResult{
		Text:      text,
		Source:    source,
		Model:     model,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
		CharCount: len([]rune(text)),
	}); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
