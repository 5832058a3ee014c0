package logutil

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

const (
	logFileName  = "screen_ai_assistant.log"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3
)

// Setup sends the process log to stdout, or to screen_ai_assistant.log in the
// working directory with size-based rotation (10MB, 3 archives).
func Setup(enableFileLogging bool) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		log.SetOutput(os.Stdout)
		return
	}
	w, err := newRotatingFile(logFileName, maxSizeBytes, maxArchives)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		log.SetOutput(os.Stdout)
		return
	}
	log.SetOutput(w)
	log.Printf("File logging enabled: %s", logFileName)
}

// rotatingFile appends to path and shifts it to path.1..path.N once a write
// would push it past limit.
type rotatingFile struct {
	mu       sync.Mutex
	path     string
	limit    int64
	archives int
	f        *os.File
	size     int64
}

func newRotatingFile(path string, limit int64, archives int) (*rotatingFile, error) {
	r := &rotatingFile{path: path, limit: limit, archives: archives}
	if err := r.open(); err != nil {
		return nil, err
	}
	if r.size > limit {
		if err := r.rotate(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// open (re)opens the live file and records its current size.
func (r *rotatingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	r.f, r.size = f, st.Size()
	return nil
}

func (r *rotatingFile) rotate() error {
	if err := r.f.Close(); err != nil {
		return err
	}
	_ = os.Remove(r.archive(r.archives))
	for i := r.archives - 1; i >= 1; i-- {
		_ = os.Rename(r.archive(i), r.archive(i+1))
	}
	if err := os.Rename(r.path, r.archive(1)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return r.open()
}

func (r *rotatingFile) archive(n int) string { return fmt.Sprintf("%s.%d", r.path, n) }

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size > 0 && r.size+int64(len(p)) > r.limit {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := r.f.Write(p)
	r.size += int64(n)
	return n, err
}

// RedactKey masks an API key, leaving first/last 4 chars: xxxx...yyyy
func RedactKey(k string) string {
	if len(k) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s...%s", k[:4], k[len(k)-4:])
}

// Preview shortens model output for the process log and escapes control
// characters so a response cannot forge log lines.
func Preview(text string, maxRunes int) string {
	r := []rune(text)
	truncated := false
	if maxRunes > 0 && len(r) > maxRunes {
		r = r[:maxRunes]
		truncated = true
	}

	var b strings.Builder
	for _, c := range r {
		switch {
		case c == '\n' || c == '\r':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 32 || c == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(c)
		}
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}
