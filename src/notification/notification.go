package notification

import (
	"log"
	"strings"

	"fyne.io/fyne/v2"

	"screen-ai-assistant/src/logutil"
)

// PreviewLimit caps the result text shown in a desktop notification.
const PreviewLimit = 200

// Sender is satisfied by fyne.App.
type Sender interface {
	SendNotification(*fyne.Notification)
}

// Preview shortens a result to a single line of at most PreviewLimit characters.
func Preview(text string) string {
	return logutil.Preview(strings.TrimSpace(text), PreviewLimit)
}

// ShowResult posts a desktop notification with a preview of text.
func ShowResult(s Sender, title, text string) {
	if s == nil {
		log.Printf("Result: %s", Preview(text))
		return
	}
	s.SendNotification(fyne.NewNotification(title, Preview(text)))
}
