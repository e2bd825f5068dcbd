// Package chat provides the interactive TUI for the assistant.
// This file contains model construction.
package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	"smartassist/cmd/assist/ui"
	"smartassist/internal/api"
	"smartassist/internal/config"
	convo "smartassist/internal/chat"
	"smartassist/internal/documents"
	"smartassist/internal/history"
	"smartassist/internal/logging"
	"smartassist/internal/session"
)

const inputPlaceholder = "Ask a question... (Enter to send, Ctrl+C to exit)"

// New builds the chat model from an authenticated client.
func New(cfg *config.Config, client *api.Client, asker convo.Asker, sess session.Session) Model {
	styles := ui.NewStyles(ui.ThemeByName(cfg.Theme))

	// Initialize textarea for input
	ta := textarea.New()
	ta.Placeholder = inputPlaceholder
	ta.Focus()
	ta.Prompt = "| "
	ta.CharLimit = 4096
	ta.SetWidth(80)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	// Initialize spinner
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	// Initialize viewport for chat history
	vp := viewport.New(80, 20)
	vp.SetContent("")

	// Initialize markdown renderer
	var renderer *glamour.TermRenderer
	if styles.Theme.IsDark {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
	} else {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath("light"),
			glamour.WithWordWrap(80),
		)
	}

	// Conversation picker (also serves as title search via filtering)
	picker := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	picker.Title = "Conversations"
	picker.SetShowStatusBar(false)
	picker.SetFilteringEnabled(true)

	var profile session.Profile
	if sess.Profile != nil {
		profile = *sess.Profile
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())

	return Model{
		textarea: ta,
		viewport: vp,
		spinner:  sp,
		picker:   picker,
		styles:   styles,
		renderer: renderer,

		cfg:     cfg,
		client:  client,
		convo:   convo.NewReconciler(client, asker),
		history: history.NewStore(client, cfg.PageSize),
		docs:    documents.NewRegistry(client),
		profile: profile,
		log:     logging.L("tui"),

		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}
}

// refreshPicker rebuilds the picker items from the classified history.
func (m *Model) refreshPicker() {
	var items []list.Item
	for _, bucket := range history.Classify(m.history.Entries(), timeNow()) {
		for _, e := range bucket.Entries {
			items = append(items, entryItem{entry: e, bucket: bucket.Label})
		}
	}
	m.picker.SetItems(items)
}
