package gui

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"screen-ai-assistant/src/clipboard"
	"screen-ai-assistant/src/messages"
	"screen-ai-assistant/src/notification"
	"screen-ai-assistant/src/tray"
)

const (
	appID    = "com.screenai.assistant"
	appTitle = "Screen AI Assistant"
)

type Options struct {
	Settings *SettingsStore
	Updates  <-chan messages.Message
	// OnCapture requests an invocation, as the pointer trigger does.
	OnCapture func()
	// OnClose runs once before the app quits, on the UI goroutine.
	OnClose func()
}

// Window is the main window plus tray integration. All widget access happens
// on the fyne goroutine; other goroutines go through fyne.Do.
type Window struct {
	opts Options
	app  fyne.App
	win  fyne.Window

	results *textPane
	logs    *textPane

	mu         sync.Mutex
	lastResult string
	closeOnce  sync.Once
}

// textPane is an append-only, scrolled block of text.
type textPane struct {
	b      strings.Builder
	label  *widget.Label
	scroll *container.Scroll
}

func newTextPane() *textPane {
	label := widget.NewLabel("")
	label.Wrapping = fyne.TextWrapWord
	label.TextStyle = fyne.TextStyle{Monospace: true}
	return &textPane{label: label, scroll: container.NewVScroll(label)}
}

func (p *textPane) append(s string) {
	p.b.WriteString(s)
	p.label.SetText(p.b.String())
	p.scroll.ScrollToBottom()
}

func New(opts Options) *Window {
	return newWindow(app.NewWithID(appID), opts)
}

func newWindow(a fyne.App, opts Options) *Window {
	a.SetIcon(tray.Icon())
	w := &Window{
		opts:    opts,
		app:     a,
		win:     a.NewWindow(appTitle),
		results: newTextPane(),
		logs:    newTextPane(),
	}
	w.build()
	return w
}

func (w *Window) build() {
	initial := w.opts.Settings.Snapshot()

	prompt := widget.NewMultiLineEntry()
	prompt.Wrapping = fyne.TextWrapWord
	prompt.SetMinRowsVisible(5)
	prompt.SetText(initial.Prompt)
	prompt.OnChanged = w.opts.Settings.SetPrompt

	deliver := widget.NewCheck("Send results to Telegram", w.opts.Settings.SetDeliver)
	deliver.SetChecked(initial.Deliver)
	attach := widget.NewCheck("Attach screenshot", w.opts.Settings.SetAttachImage)
	attach.SetChecked(initial.AttachImage)

	token := widget.NewPasswordEntry()
	token.SetPlaceHolder("bot token")
	token.SetText(initial.Credentials.Token)
	token.OnChanged = w.opts.Settings.SetToken

	chatID := widget.NewEntry()
	chatID.SetPlaceHolder("chat id or @channel")
	chatID.SetText(initial.Credentials.ChatID)
	chatID.OnChanged = w.opts.Settings.SetChatID

	form := widget.NewForm(
		widget.NewFormItem("Bot token", token),
		widget.NewFormItem("Chat ID", chatID),
	)
	settings := widget.NewCard("Settings", "Press the trigger button anywhere to capture",
		container.NewVBox(widget.NewLabel("Prompt"), prompt, deliver, attach, form))

	copyBtn := widget.NewButton("Copy last result", w.copyLastResult)
	captureBtn := widget.NewButton("Capture now", w.capture)
	resultsPane := container.NewBorder(
		widget.NewLabelWithStyle("Results", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(captureBtn, copyBtn), nil, nil,
		w.results.scroll,
	)
	logPane := container.NewBorder(
		widget.NewLabelWithStyle("Log", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		nil, nil, nil,
		w.logs.scroll,
	)

	right := container.NewVSplit(settings, logPane)
	right.Offset = 0.5
	split := container.NewHSplit(resultsPane, right)
	split.Offset = 2.0 / 3.0

	w.win.SetContent(split)
	w.win.Resize(fyne.NewSize(1200, 800))
	w.win.SetCloseIntercept(w.quit)

	if desk, ok := w.app.(desktop.App); ok {
		desk.SetSystemTrayIcon(tray.Icon())
		quit := fyne.NewMenuItem("Quit", w.quit)
		quit.IsQuit = true
		desk.SetSystemTrayMenu(fyne.NewMenu(appTitle,
			fyne.NewMenuItem("Show", func() { w.win.Show() }),
			fyne.NewMenuItem("Capture now", w.capture),
			fyne.NewMenuItem("Copy last result", w.copyLastResult),
			fyne.NewMenuItemSeparator(),
			quit,
		))
	}
}

func (w *Window) capture() {
	if w.opts.OnCapture != nil {
		w.opts.OnCapture()
	}
}

func (w *Window) copyLastResult() {
	w.mu.Lock()
	text := w.lastResult
	w.mu.Unlock()
	if err := clipboard.Write(text); err != nil {
		w.logs.append(FormatLogLine("copy failed: "+err.Error(), time.Now()))
		return
	}
	w.logs.append(FormatLogLine("last result copied to clipboard", time.Now()))
}

func (w *Window) quit() {
	w.closeOnce.Do(func() {
		log.Printf("Window closing")
		if w.opts.OnClose != nil {
			w.opts.OnClose()
		}
		w.app.Quit()
	})
}

// Close runs the same shutdown as the window's close button. Safe from any goroutine.
func (w *Window) Close() {
	fyne.Do(w.quit)
}

// ShowAndRun drains updates until ctx is done and blocks in the fyne main
// loop until the app quits. It must be called from the main goroutine.
func (w *Window) ShowAndRun(ctx context.Context) {
	go w.drain(ctx)
	w.win.ShowAndRun()
}

func (w *Window) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-w.opts.Updates:
			fyne.Do(func() { w.apply(m) })
		}
	}
}

func (w *Window) apply(m messages.Message) {
	switch msg := m.(type) {
	case messages.LogLine:
		w.logs.append(FormatLogLine(msg.Text, msg.At))
	case messages.Result:
		w.results.append(FormatResult(msg.Text, time.Now()))
		if msg.Err {
			return
		}
		w.mu.Lock()
		w.lastResult = msg.Text
		w.mu.Unlock()
		notification.ShowResult(w.app, appTitle, msg.Text)
	case messages.Status:
		w.win.SetTitle(tray.Tooltip(appTitle, msg.Busy))
	default:
		log.Printf("gui: unhandled update %s", m.Type())
	}
}
