package logutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRedactKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "********"},
		{"short", "********"},
		{"sk-1234567890abcd", "sk-1...abcd"},
	}
	for _, tt := range tests {
		if got := RedactKey(tt.in); got != tt.want {
			t.Errorf("RedactKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"plain", "hello", 10, "hello"},
		{"newlines", "a\nb\r\tc", 10, `a\nb\n\tc`},
		{"control", "a\x01b", 10, "a?b"},
		{"truncate", "abcdef", 3, "abc..."},
		{"runes", "界面类型设置", 2, "界面..."},
		{"unlimited", "abcdef", 0, "abcdef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.in, tt.max); got != tt.want {
				t.Errorf("Preview(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := newRotatingFile(path, 10, 2)
	if err != nil {
		t.Fatalf("newRotatingFile: %v", err)
	}
	for _, line := range []string{"first-1\n", "second\n", "third!\n", "fourth\n"} {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	w.f.Close()

	want := map[string]string{
		path:        "fourth\n",
		path + ".1": "third!\n",
		path + ".2": "second\n",
	}
	for p, content := range want {
		got, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", p, err)
		}
		if string(got) != content {
			t.Errorf("%s = %q, want %q", filepath.Base(p), got, content)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("expected at most 2 archives, stat .3: %v", err)
	}
}
