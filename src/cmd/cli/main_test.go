package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"screen-ai-assistant/src/config"
)

func TestPNGValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"ValidPNG", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00}, false},
		{"InvalidMagic", []byte{0x00, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, true},
		{"TooShort", []byte{0x89, 'P', 'N', 'G'}, true},
		{"Empty", []byte{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePNG(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePNG() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &cliOptions{}
	cmd := newRootCmd(opts, streams{})
	if err := cmd.ParseFlags([]string{"--file", "-", "--prompt", "what is this?", "--json", "-v", "--telegram"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	want := cliOptions{filePath: "-", prompt: "what is this?", json: true, verbose: true, telegram: true}
	if *opts != want {
		t.Errorf("options = %+v, want %+v", *opts, want)
	}
}

func TestFileFlagRequired(t *testing.T) {
	err := runWithArgs(context.Background(), []string{"screen-ai-cli"}, streams{in: strings.NewReader(""), out: io.Discard, err: io.Discard})
	if err == nil || !strings.Contains(err.Error(), "file") {
		t.Errorf("expected missing --file error, got %v", err)
	}
}

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	if err := os.WriteFile(good, encodePNG(t), 0600); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.png")
	if err := os.WriteFile(empty, nil, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := readImage(good, nil); err != nil {
		t.Errorf("readImage(good): %v", err)
	}
	if _, err := readImage(empty, nil); err == nil {
		t.Error("expected error for empty file")
	}
	if _, err := readImage(filepath.Join(dir, "missing.png"), nil); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := readImage("-", bytes.NewReader(encodePNG(t))); err != nil {
		t.Errorf("readImage(stdin): %v", err)
	}
	big := append(append([]byte{}, pngMagic...), make([]byte, maxFileSize)...)
	if _, err := readImage("-", bytes.NewReader(big)); err == nil || !strings.Contains(err.Error(), "maximum size") {
		t.Errorf("expected size error, got %v", err)
	}
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// isolateEnv clears variables the CLI reads so the test only sees its own .env.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.APIKeyEnvVar, "VISION_BASE_URL", "VISION_MODEL", "ANALYSIS_DEADLINE_SEC",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", config.EnvPathEnvVar} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Chdir(t.TempDir())
}

func TestRunAgainstFakeVisionAPI(t *testing.T) {
	isolateEnv(t)
	var gotPrompt bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPrompt = strings.Contains(string(body), "what is this?")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"a login form"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	envPath := filepath.Join(t.TempDir(), "cli.env")
	env := "DASHSCOPE_API_KEY=sk-test\nVISION_BASE_URL=" + srv.URL + "/v1\nVISION_MODEL=qwen-vl-plus\n"
	if err := os.WriteFile(envPath, []byte(env), 0600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := runWithArgs(context.Background(),
		[]string{"screen-ai-cli", "--env", envPath, "--file", "-", "--prompt", "what is this?", "--json"},
		streams{in: bytes.NewReader(encodePNG(t)), out: &stdout, err: &stderr})
	if err != nil {
		t.Fatalf("run: %v (stderr: %s)", err, stderr.String())
	}
	if !gotPrompt {
		t.Error("prompt not sent to the API")
	}

	var res AnalysisResult
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		t.Fatalf("invalid JSON output %q: %v", stdout.String(), err)
	}
	if res.Text != "a login form" || res.Source != "-" || res.Model != "qwen-vl-plus" || res.CharCount != 12 {
		t.Errorf("unexpected result: %+v", res)
	}
	if stderr.Len() != 0 {
		t.Errorf("expected empty stderr without -v, got %q", stderr.String())
	}
}

func TestRunRequiresAPIKey(t *testing.T) {
	isolateEnv(t)
	var stdout bytes.Buffer
	err := runWithArgs(context.Background(),
		[]string{"screen-ai-cli", "--file", "-"},
		streams{in: bytes.NewReader(encodePNG(t)), out: &stdout, err: io.Discard})
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected empty stdout on error, got %q", stdout.String())
	}
}
