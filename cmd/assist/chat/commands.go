// Package chat provides the interactive TUI for the assistant.
// This file contains /command handling.
package chat

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// handleCommand processes all /command inputs from the user.
func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]
	m.textarea.Reset()

	switch cmd {
	case "/quit", "/exit", "/q":
		m.performShutdown()
		return m, tea.Quit

	case "/new":
		m.startNewConversation()
		return m, nil

	case "/conversations", "/list", "/search":
		return m.openPicker()

	case "/docs", "/documents":
		return m.openDocs()

	case "/upload":
		if len(parts) > 1 {
			return m, tea.Batch(m.spinner.Tick, m.uploadDocument(strings.Join(parts[1:], " ")))
		}
		m.inputMode = InputModeUpload
		m.textarea.Placeholder = "File path to upload... (Enter to confirm, Esc to cancel)"
		return m, nil

	case "/rename":
		id := m.history.ActiveID()
		if id == "" {
			m.err = errNoActiveConversation
			return m, nil
		}
		if len(parts) > 1 {
			return m, m.renameEntry(id, strings.Join(parts[1:], " "))
		}
		m.inputMode = InputModeRename
		m.textarea.Placeholder = "New conversation title... (Enter to confirm, Esc to cancel)"
		return m, nil

	case "/delete":
		id := m.history.ActiveID()
		if id == "" {
			m.err = errNoActiveConversation
			return m, nil
		}
		return m, m.deleteEntry(id)

	case "/help":
		m.viewport.SetContent(m.renderHelp())
		m.viewport.GotoTop()
		return m, nil
	}

	m.err = errUnknownCommand(cmd)
	return m, nil
}

func (m Model) renderHelp() string {
	help := `## Available Commands

| Command | Description |
|---------|-------------|
| /help | Show this help message |
| /new | Start a new conversation |
| /conversations | Browse and search conversations |
| /rename [title] | Rename the active conversation |
| /delete | Delete the active conversation |
| /docs | Open the documents panel |
| /upload [path] | Upload a document |
| /quit | Exit |

**Keys:** Alt+L conversations, Alt+D documents, Alt+N new, Alt+Enter newline, Esc/Ctrl+C quit.
`
	return m.safeRenderMarkdown(help)
}

type commandError string

func (e commandError) Error() string { return string(e) }

const errNoActiveConversation = commandError("no active conversation")

func errUnknownCommand(cmd string) error {
	return commandError("unknown command " + cmd + " (try /help)")
}
