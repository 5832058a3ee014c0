package tray

import "fyne.io/fyne/v2"

// SVG for the window and system tray: a screen with a magnifier.
const iconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" width="16" height="16">
  <rect x="1" y="2" width="12" height="8" rx="1" fill="none" stroke="#0078d4" stroke-width="1.2"/>
  <line x1="5" y1="12.5" x2="9" y2="12.5" stroke="#0078d4" stroke-width="1.2" stroke-linecap="round"/>
  <circle cx="10.5" cy="9.5" r="2.5" fill="#ffffff" stroke="#333333" stroke-width="1"/>
  <line x1="12.3" y1="11.3" x2="14.5" y2="13.5" stroke="#333333" stroke-width="1.4" stroke-linecap="round"/>
</svg>`

var icon = fyne.NewStaticResource("screen-ai-assistant.svg", []byte(iconSVG))

// Icon is the application icon used for the window and the tray.
func Icon() fyne.Resource { return icon }

// Tooltip returns the tray/window status text for the busy state.
func Tooltip(base string, busy bool) string {
	if busy {
		return base + " (analyzing...)"
	}
	return base
}
