package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const (
	// CaptionLimit is Telegram's maximum photo caption length.
	CaptionLimit = 1024
	// MessageLimit is Telegram's maximum text message length.
	MessageLimit = 4096
)

var ErrNotConfigured = errors.New("telegram delivery is not configured: bot token and chat id are required")

// Credentials identify the bot and the destination chat. Only presence is checked.
type Credentials struct {
	Token  string
	ChatID string
}

func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.Token) != "" && strings.TrimSpace(c.ChatID) != ""
}

// Payload is what gets forwarded: the analysis text and an optional PNG.
type Payload struct {
	Text      string
	Image     []byte
	ImageName string
}

// Telegram forwards payloads through the Bot API.
type Telegram struct {
	// APIServer overrides https://api.telegram.org, used by tests.
	APIServer  string
	HTTPClient *http.Client
}

// Send delivers p to the chat named in creds and returns a status line for the log.
func (t *Telegram) Send(ctx context.Context, creds Credentials, p Payload) (string, error) {
	if !creds.Configured() {
		return "", ErrNotConfigured
	}

	bot, err := t.newBot(strings.TrimSpace(creds.Token))
	if err != nil {
		return "", fmt.Errorf("telegram bot setup failed: %w", err)
	}
	chatID := parseChatID(creds.ChatID)

	if len(p.Image) > 0 {
		name := p.ImageName
		if name == "" {
			name = "screenshot.png"
		}
		params := tu.Photo(chatID, tu.File(tu.NameReader(bytes.NewReader(p.Image), name))).
			WithCaption(TruncateRunes(p.Text, CaptionLimit))
		if _, err := bot.SendPhoto(ctx, params); err != nil {
			return "", fmt.Errorf("telegram sendPhoto failed: %w", err)
		}
		return fmt.Sprintf("sent screenshot with caption to %s", creds.ChatID), nil
	}

	chunks := SplitRunes(p.Text, MessageLimit)
	for i, chunk := range chunks {
		if _, err := bot.SendMessage(ctx, tu.Message(chatID, chunk)); err != nil {
			return "", fmt.Errorf("telegram sendMessage failed (part %d/%d): %w", i+1, len(chunks), err)
		}
	}
	return fmt.Sprintf("sent %d message(s) to %s", len(chunks), creds.ChatID), nil
}

func (t *Telegram) newBot(token string) (*telego.Bot, error) {
	opts := []telego.BotOption{telego.WithDiscardLogger()}
	if t.APIServer != "" {
		opts = append(opts, telego.WithAPIServer(t.APIServer))
	}
	httpClient := t.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts = append(opts, telego.WithHTTPClient(httpClient))
	return telego.NewBot(token, opts...)
}

// parseChatID accepts numeric ids (including negative group ids) or @channel usernames.
func parseChatID(raw string) telego.ChatID {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return tu.ID(id)
	}
	if !strings.HasPrefix(raw, "@") {
		raw = "@" + raw
	}
	return tu.Username(raw)
}

// TruncateRunes caps s at limit characters.
func TruncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// SplitRunes cuts s into pieces of at most limit characters. An empty s yields one empty piece.
func SplitRunes(s string, limit int) []string {
	r := []rune(s)
	if len(r) <= limit {
		return []string{s}
	}
	var parts []string
	for len(r) > limit {
		parts = append(parts, string(r[:limit]))
		r = r[limit:]
	}
	if len(r) > 0 {
		parts = append(parts, string(r))
	}
	return parts
}
