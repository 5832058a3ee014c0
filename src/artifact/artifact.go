package artifact

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	namePrefix    = "screenshot_"
	nameLayout    = "20060102_150405"
	nameSuffix    = ".png"
	dataURIPrefix = "data:image/png;base64,"
)

// Artifact is the transient PNG written for one invocation. The owner must
// call Remove on every exit path.
type Artifact struct {
	Path      string
	Name      string
	CreatedAt time.Time

	removeOnce sync.Once
	removeErr  error
}

// Name returns the artifact file name for t, at second granularity.
func Name(t time.Time) string {
	return namePrefix + t.Format(nameLayout) + nameSuffix
}

// Write encodes img as PNG and stores it in dir under Name(now).
func Write(dir string, img image.Image, now time.Time) (*Artifact, error) {
	if img == nil {
		return nil, errors.New("artifact: nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}

	if dir == "" {
		dir = "."
	}
	name := Name(now)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", path, err)
	}

	return &Artifact{Path: path, Name: name, CreatedAt: now}, nil
}

// Bytes reads the artifact back from disk.
func (a *Artifact) Bytes() ([]byte, error) {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", a.Path, err)
	}
	return data, nil
}

// Remove deletes the file. Safe to call more than once; a missing file is not an error.
func (a *Artifact) Remove() error {
	if a == nil {
		return nil
	}
	a.removeOnce.Do(func() {
		if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			a.removeErr = err
		}
	})
	return a.removeErr
}

// EncodeBase64 is the transport encoding for image bytes.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 reverses EncodeBase64.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// DataURI embeds PNG bytes as a data URI for the image part of a chat request.
func DataURI(pngData []byte) string {
	return dataURIPrefix + EncodeBase64(pngData)
}

// DecodeDataURI extracts the PNG bytes from a URI produced by DataURI.
func DecodeDataURI(uri string) ([]byte, error) {
	if len(uri) < len(dataURIPrefix) || uri[:len(dataURIPrefix)] != dataURIPrefix {
		return nil, errors.New("artifact: not a PNG base64 data URI")
	}
	return DecodeBase64(uri[len(dataURIPrefix):])
}
