package gui

import (
	"strings"
	"sync"

	"screen-ai-assistant/src/delivery"
	"screen-ai-assistant/src/pipeline"
)

// SettingsStore mirrors the settings widgets. Widget callbacks write it on the
// UI goroutine; the event loop reads a copy from any goroutine.
type SettingsStore struct {
	mu            sync.Mutex
	s             pipeline.Settings
	defaultPrompt string
}

func NewSettingsStore(initial pipeline.Settings) *SettingsStore {
	return &SettingsStore{s: initial, defaultPrompt: initial.Prompt}
}

// Snapshot implements eventloop.SettingsSource. A blank prompt falls back to
// the startup default.
func (st *SettingsStore) Snapshot() pipeline.Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.s
	if strings.TrimSpace(s.Prompt) == "" {
		s.Prompt = st.defaultPrompt
	}
	s.Credentials = delivery.Credentials{
		Token:  strings.TrimSpace(s.Credentials.Token),
		ChatID: strings.TrimSpace(s.Credentials.ChatID),
	}
	return s
}

func (st *SettingsStore) update(fn func(*pipeline.Settings)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
}

func (st *SettingsStore) SetPrompt(v string)    { st.update(func(s *pipeline.Settings) { s.Prompt = v }) }
func (st *SettingsStore) SetDeliver(v bool)     { st.update(func(s *pipeline.Settings) { s.Deliver = v }) }
func (st *SettingsStore) SetAttachImage(v bool) { st.update(func(s *pipeline.Settings) { s.AttachImage = v }) }
func (st *SettingsStore) SetToken(v string)     { st.update(func(s *pipeline.Settings) { s.Credentials.Token = v }) }
func (st *SettingsStore) SetChatID(v string)    { st.update(func(s *pipeline.Settings) { s.Credentials.ChatID = v }) }
