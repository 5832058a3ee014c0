//go:build !windows

package platform

import (
	"log"

	"screen-ai-assistant/src/screenshot"
)

// EnableDPIAwareness is a no-op outside Windows.
func EnableDPIAwareness() {}

// LogDisplayMetrics records the virtual screen geometry the capture will cover.
func LogDisplayMetrics() {
	b, err := screenshot.VirtualBounds()
	if err != nil {
		log.Printf("Displays: %v", err)
		return
	}
	log.Printf("Displays: virtual screen x:%d y:%d w:%d h:%d", b.Min.X, b.Min.Y, b.Dx(), b.Dy())
	if p, err := screenshot.GetDisplayBounds(); err == nil {
		log.Printf("Displays: primary w:%d h:%d", p.Dx(), p.Dy())
	}
}
