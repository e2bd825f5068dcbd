// Package chat provides the interactive TUI for the assistant.
// The implementation is split across multiple files:
//   - model.go: types, messages, commands, Init (this file)
//   - model_update.go: the Update loop and input handling
//   - commands.go: /command handling
//   - view.go: rendering functions
//   - session.go: model construction
package chat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"smartassist/cmd/assist/ui"
	"smartassist/internal/api"
	"smartassist/internal/config"
	convo "smartassist/internal/chat"
	"smartassist/internal/documents"
	"smartassist/internal/history"
	"smartassist/internal/session"
)

// ViewMode determines which component is focused/active.
type ViewMode int

const (
	ChatView ViewMode = iota
	PickerView
	DocsView
)

// InputMode represents what the next submitted line means.
type InputMode int

const (
	InputModeNormal InputMode = iota // Default: process as a question
	InputModeRename                  // Awaiting the new conversation title
	InputModeUpload                  // Awaiting a file path to upload
)

// starterQuestions seed an empty conversation screen.
var starterQuestions = []string{
	"What can you help me with?",
	"Summarize the most recently uploaded document",
	"Which documents do you currently have access to?",
	"Give me the key takeaways from the knowledge base",
}

// entryItem is a list item for the conversation picker.
type entryItem struct {
	entry  api.Entry
	bucket string
}

func (i entryItem) Title() string { return i.entry.Name }
func (i entryItem) Description() string {
	return fmt.Sprintf("%s · %s", i.bucket, i.entry.CreatedAt.Format("Jan 2 15:04"))
}
func (i entryItem) FilterValue() string { return i.entry.Name }

// Model is the main model for the interactive chat interface.
type Model struct {
	// UI Components
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	picker   list.Model
	styles   ui.Styles
	renderer *glamour.TermRenderer

	viewMode  ViewMode
	inputMode InputMode

	// Backend
	cfg     *config.Config
	client  *api.Client
	convo   *convo.Reconciler
	history *history.Store
	docs    *documents.Registry
	profile session.Profile
	log     *zap.Logger

	// events is the live stream event channel for the in-flight
	// question, nil when idle.
	events <-chan convo.Event

	// State
	err        error
	notice     string
	width      int
	height     int
	ready      bool
	docsCursor int

	// Shutdown coordination
	shutdownOnce sync.Once
	rootCtx      context.Context
	rootCancel   context.CancelFunc
}

// Shutdown cancels all background operations. Safe to call multiple
// times; must be called before tea.Quit.
func (m *Model) Shutdown() {
	m.shutdownOnce.Do(func() {
		if m.rootCancel != nil {
			m.rootCancel()
		}
	})
}

// performShutdown is a value-receiver wrapper for Shutdown() so it can
// be called from Update().
func (m Model) performShutdown() {
	modelPtr := &m
	modelPtr.Shutdown()
}

// Messages for tea updates
type (
	errorMsg error

	entriesPageMsg struct {
		pageNum int
		page    api.EntriesPage
		err     error
	}

	entryOpenedMsg struct {
		id       string
		messages []api.Message
		err      error
	}

	chatEventMsg struct {
		evt    convo.Event
		events <-chan convo.Event
	}
	streamClosedMsg struct{}

	docsListMsg struct {
		docs []api.Document
		err  error
	}
	docUploadedMsg struct {
		docs []api.Document
		err  error
	}
	docDeletedMsg struct {
		id  int
		err error
	}

	renameDoneMsg struct {
		id    string
		title string
		err   error
	}
	entryDeletedMsg struct {
		id  string
		err error
	}
)

// Init starts the spinner, cursor blink and the first history page.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.loadEntriesPage(1),
	)
}

// =============================================================================
// BACKGROUND COMMANDS
// =============================================================================
// Each command performs network work only; results are folded into the
// stores on the Update thread.

func (m Model) loadEntriesPage(page int) tea.Cmd {
	return func() tea.Msg {
		result, err := m.history.FetchPage(m.rootCtx, page)
		return entriesPageMsg{pageNum: page, page: result, err: err}
	}
}

func (m Model) openEntry(id string) tea.Cmd {
	return func() tea.Msg {
		msgs, err := m.client.GetEntry(m.rootCtx, id)
		return entryOpenedMsg{id: id, messages: msgs, err: err}
	}
}

// waitForChatEvent listens for the next stream event.
func waitForChatEvent(events <-chan convo.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return chatEventMsg{evt: evt, events: events}
	}
}

func (m Model) loadDocuments() tea.Cmd {
	return func() tea.Msg {
		docs, err := m.docs.Fetch(m.rootCtx)
		return docsListMsg{docs: docs, err: err}
	}
}

func (m Model) uploadDocument(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return docUploadedMsg{err: err}
		}
		defer f.Close()
		docs, err := m.docs.Upload(m.rootCtx, filepath.Base(path), f)
		return docUploadedMsg{docs: docs, err: err}
	}
}

func (m Model) deleteDocument(id int) tea.Cmd {
	return func() tea.Msg {
		err := m.docs.Delete(m.rootCtx, id)
		return docDeletedMsg{id: id, err: err}
	}
}

func (m Model) renameEntry(id, title string) tea.Cmd {
	return func() tea.Msg {
		err := m.client.RenameEntry(m.rootCtx, id, title)
		return renameDoneMsg{id: id, title: title, err: err}
	}
}

func (m Model) deleteEntry(id string) tea.Cmd {
	return func() tea.Msg {
		err := m.client.DeleteEntry(m.rootCtx, id)
		return entryDeletedMsg{id: id, err: err}
	}
}

// RunChat starts the interactive chat session.
func RunChat(cfg *config.Config, client *api.Client, asker convo.Asker, sess session.Session) error {
	model := New(cfg, client, asker, sess)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
