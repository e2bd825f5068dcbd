// Package chat provides the interactive TUI for the assistant.
// This file contains the Update loop and input handling.
package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"smartassist/internal/api"
	convo "smartassist/internal/chat"
)

// timeNow is swappable in tests.
var timeNow = time.Now

const sidebarWidth = 30

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings
		switch msg.Type {
		case tea.KeyCtrlC:
			m.performShutdown()
			return m, tea.Quit
		case tea.KeyEsc:
			if m.viewMode != ChatView {
				m.viewMode = ChatView
				return m, nil
			}
			if m.inputMode != InputModeNormal {
				m.inputMode = InputModeNormal
				m.textarea.Placeholder = inputPlaceholder
				m.textarea.Reset()
				return m, nil
			}
			m.performShutdown()
			return m, tea.Quit
		}

		// Conversation picker handling
		if m.viewMode == PickerView {
			if msg.Type == tea.KeyEnter && m.picker.FilterState() != list.Filtering {
				if item, ok := m.picker.SelectedItem().(entryItem); ok {
					m.viewMode = ChatView
					return m, m.openEntry(item.entry.ID)
				}
				return m, nil
			}
			if msg.String() == "m" && m.picker.FilterState() == list.Unfiltered && m.history.HasMore() {
				return m, m.loadEntriesPage(m.history.NextPage())
			}
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			return m, cmd
		}

		// Documents panel handling
		if m.viewMode == DocsView {
			return m.handleDocsKey(msg)
		}

		// Chat view handling. Alt+Enter falls through to the textarea
		// and inserts a newline.
		if msg.Type == tea.KeyEnter && !msg.Alt {
			return m.handleSubmit()
		}

		// Alt key bindings
		if msg.Alt && len(msg.Runes) > 0 {
			switch msg.Runes[0] {
			case 'l':
				return m.openPicker()
			case 'd':
				return m.openDocs()
			case 'n':
				m.startNewConversation()
				return m, nil
			case '1', '2', '3', '4':
				if idx := int(msg.Runes[0] - '1'); len(m.convo.Messages()) == 0 && idx < len(starterQuestions) {
					m.textarea.SetValue(starterQuestions[idx])
				}
				return m, nil
			}
		}

		m.textarea, tiCmd = m.textarea.Update(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3
		footerHeight := 2
		inputHeight := 4

		side := sidebarWidth
		if msg.Width < 80 {
			side = 0
		}
		chatWidth := msg.Width - side - 4
		if chatWidth < 1 {
			chatWidth = 1
		}
		calcHeight := msg.Height - headerHeight - footerHeight - inputHeight
		if calcHeight < 1 {
			calcHeight = 1
		}

		m.viewport.Width = chatWidth
		m.viewport.Height = calcHeight
		m.ready = true

		m.textarea.SetWidth(chatWidth - 4)
		m.picker.SetSize(msg.Width-4, msg.Height-4)

		// Rebuild the renderer so markdown re-wraps to the new width
		if m.renderer != nil {
			wrap := chatWidth - 4
			if wrap < 20 {
				wrap = 20
			}
			if m.styles.Theme.IsDark {
				m.renderer, _ = glamour.NewTermRenderer(
					glamour.WithAutoStyle(),
					glamour.WithWordWrap(wrap),
				)
			} else {
				m.renderer, _ = glamour.NewTermRenderer(
					glamour.WithStylePath("light"),
					glamour.WithWordWrap(wrap),
				)
			}
		}
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		if m.convo.IsLoading() || m.anyDocDeleting() {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case chatEventMsg:
		cmds := []tea.Cmd{waitForChatEvent(msg.events)}
		if m.convo.Apply(msg.evt) {
			switch e := msg.evt.(type) {
			case convo.CompletedEvent:
				m.finishCompletion(e)
			case convo.FailedEvent:
				m.err = e.Err
			}
			m.viewport.SetContent(m.renderHistory())
			m.viewport.GotoBottom()
		}
		return m, tea.Batch(cmds...)

	case streamClosedMsg:
		m.events = nil
		return m, nil

	case entriesPageMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.history.ApplyPage(msg.pageNum, msg.page)
		m.refreshPicker()
		return m, nil

	case entryOpenedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.history.SetActive(msg.id)
		m.convo.Reset(msg.id, msg.messages)
		m.events = nil
		m.err = nil
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case docsListMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.docs.ApplyList(msg.docs)
		m.clampDocsCursor()
		return m, nil

	case docUploadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.docs.ApplyUpload(msg.docs)
		m.clampDocsCursor()
		m.viewMode = DocsView
		return m, nil

	case docDeletedMsg:
		m.docs.ApplyDelete(msg.id, msg.err)
		if msg.err != nil {
			m.err = msg.err
		}
		m.clampDocsCursor()
		return m, nil

	case renameDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.history.ApplyRename(msg.id, msg.title)
		m.refreshPicker()
		return m, nil

	case entryDeletedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		wasActive := m.history.ActiveID() == msg.id
		m.history.ApplyDelete(msg.id)
		m.refreshPicker()
		if wasActive {
			if next := m.history.ActiveID(); next != "" {
				return m, m.openEntry(next)
			}
			m.convo.Clear()
			m.events = nil
			m.viewport.SetContent(m.renderHistory())
		}
		return m, nil

	case errorMsg:
		m.err = msg
		return m, nil
	}

	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}

	switch m.inputMode {
	case InputModeRename:
		m.inputMode = InputModeNormal
		m.textarea.Placeholder = inputPlaceholder
		m.textarea.Reset()
		id := m.history.ActiveID()
		if id == "" {
			return m, nil
		}
		return m, m.renameEntry(id, input)

	case InputModeUpload:
		m.inputMode = InputModeNormal
		m.textarea.Placeholder = inputPlaceholder
		m.textarea.Reset()
		return m, tea.Batch(m.spinner.Tick, m.uploadDocument(input))
	}

	// Check for special commands
	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	// Submit rejects blank questions and questions sent while one is
	// already in flight on this conversation.
	events, ok := m.convo.Submit(m.rootCtx, input)
	if !ok {
		return m, nil
	}
	m.events = events
	m.err = nil
	m.textarea.Reset()
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
	return m, tea.Batch(m.spinner.Tick, waitForChatEvent(events))
}

// finishCompletion folds a finished answer into the history sidebar.
func (m *Model) finishCompletion(e convo.CompletedEvent) {
	c := e.Completion
	m.client.InvalidateEntry(c.EntryID)
	if e.NewEntry {
		name := c.EntryName
		if name == "" {
			if msgs := m.convo.Messages(); len(msgs) > 0 {
				name = msgs[len(msgs)-1].UserQuery
			}
		}
		created := c.CreatedAt
		if created.IsZero() {
			created = timeNow()
		}
		m.history.Register(api.Entry{ID: c.EntryID, Name: name, CreatedAt: created})
	} else {
		m.history.Touch(c.EntryID, timeNow())
	}
	m.refreshPicker()
	m.log.Debug("answer completed", zap.String("entry", c.EntryID), zap.Bool("new", e.NewEntry))
}

func (m Model) openPicker() (tea.Model, tea.Cmd) {
	m.refreshPicker()
	m.viewMode = PickerView
	return m, nil
}

// openDocs switches to the documents panel, fetching the list lazily on
// first expansion.
func (m Model) openDocs() (tea.Model, tea.Cmd) {
	m.viewMode = DocsView
	if !m.docs.Loaded() {
		return m, m.loadDocuments()
	}
	return m, nil
}

// startNewConversation clears the active conversation; the entry is
// created server-side on the first question.
func (m *Model) startNewConversation() {
	m.convo.Clear()
	m.history.SetActive("")
	m.events = nil
	m.err = nil
	m.viewport.SetContent(m.renderHistory())
}

func (m Model) handleDocsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key dismisses the one-shot upload notice.
	if m.docs.UploadComplete() {
		m.docs.DismissUpload()
	}

	docs := m.docs.Documents()
	switch msg.String() {
	case "up", "k":
		if m.docsCursor > 0 {
			m.docsCursor--
		}
	case "down", "j":
		if m.docsCursor < len(docs)-1 {
			m.docsCursor++
		}
	case "u":
		m.viewMode = ChatView
		m.inputMode = InputModeUpload
		m.textarea.Placeholder = "File path to upload... (Enter to confirm, Esc to cancel)"
		m.textarea.Reset()
	case "d", "x":
		if m.docsCursor < len(docs) {
			d := docs[m.docsCursor]
			// Deletes of distinct documents run independently; a second
			// delete of the same row is a no-op while one is in flight.
			if !m.docs.Deleting(d.ID) {
				m.docs.MarkDeleting(d.ID)
				return m, tea.Batch(m.spinner.Tick, m.deleteDocument(d.ID))
			}
		}
	case "r":
		return m, m.loadDocuments()
	}
	return m, nil
}

func (m Model) anyDocDeleting() bool {
	for _, d := range m.docs.Documents() {
		if m.docs.Deleting(d.ID) {
			return true
		}
	}
	return false
}

func (m *Model) clampDocsCursor() {
	n := len(m.docs.Documents())
	if m.docsCursor >= n {
		m.docsCursor = n - 1
	}
	if m.docsCursor < 0 {
		m.docsCursor = 0
	}
}
