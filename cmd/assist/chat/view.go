// Package chat provides the interactive TUI for the assistant.
// This file contains view rendering functions.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"smartassist/cmd/assist/ui"
	"smartassist/internal/api"
	"smartassist/internal/history"
)

func (m Model) renderHistory() string {
	messages := m.convo.Messages()
	if len(messages) == 0 {
		return m.renderEmptyState()
	}

	var sb strings.Builder
	userStyle := m.styles.Bold.
		Foreground(m.styles.Theme.Primary).
		MarginTop(1)
	assistantStyle := m.styles.Bold.
		Foreground(m.styles.Theme.Accent).
		MarginTop(1)

	for i, msg := range messages {
		sb.WriteString(userStyle.Render("You") + "\n")
		sb.WriteString(m.styles.UserInput.Render(msg.UserQuery))
		sb.WriteString("\n\n")

		sb.WriteString(assistantStyle.Render("Assistant") + "\n")
		streamingLast := m.convo.IsLoading() && i == len(messages)-1
		if msg.Response == "" && streamingLast {
			sb.WriteString(m.styles.Muted.Render("Thinking..."))
			sb.WriteString("\n")
			continue
		}
		if streamingLast {
			// Fragments render as plain text; markdown waits for the
			// final answer so partial syntax never garbles the view.
			sb.WriteString(m.styles.Body.Render(msg.Response))
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(m.safeRenderMarkdown(msg.Response))
		sb.WriteString(m.renderSources(msg.Sources))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m Model) renderSources(sources []api.Source) string {
	if len(sources) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(m.styles.Muted.Render("Sources") + "\n")
	for _, s := range sources {
		line := fmt.Sprintf("  • %s", s.Source)
		if s.Snippet != "" {
			line += ": " + truncate(s.Snippet, 80)
		}
		sb.WriteString(m.styles.Muted.Render(line) + "\n")
	}
	return sb.String()
}

func (m Model) renderEmptyState() string {
	greeting := "How can I help you today?"
	if m.profile.FirstName != "" {
		greeting = fmt.Sprintf("How can I help you today, %s?", m.profile.FirstName)
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(greeting))
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.Muted.Render("Try one of these to get started:"))
	sb.WriteString("\n\n")
	for i, q := range starterQuestions {
		sb.WriteString(m.styles.Suggestion.Render(fmt.Sprintf("%d. %s", i+1, q)))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("Press Alt+1..4 to use a suggestion."))
	sb.WriteString("\n")
	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery.
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.viewMode == PickerView {
		hint := m.styles.Muted.Render("Enter: open  /: filter  m: load more  Esc: back")
		return m.styles.Content.Render(lipgloss.JoinVertical(lipgloss.Left, m.picker.View(), hint))
	}

	if m.viewMode == DocsView {
		return m.styles.Content.Render(m.renderDocs())
	}

	header := m.renderHeader()

	content := m.viewport.View()
	if m.err != nil {
		content = lipgloss.JoinVertical(lipgloss.Left, content, m.renderErrorPanel())
	}
	chatView := m.styles.Content.Render(content)

	if m.width >= 80 {
		sidebar := m.renderSidebar()
		chatView = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, chatView)
	}

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.Theme.Accent).
		Padding(0, 1)
	inputArea := inputStyle.Render(m.textarea.View())

	footer := m.renderFooter()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		chatView,
		inputArea,
		footer,
	)
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render(" Smart Assistant ")

	avatar := ""
	if initials := m.profile.Initials(); initials != "" {
		avatar = m.styles.Avatar.Render(initials)
	}

	var status string
	if m.convo.IsLoading() {
		status = lipgloss.JoinHorizontal(lipgloss.Center, m.spinner.View(), " ", m.styles.Badge.Render("Answering..."))
	} else {
		status = m.styles.Success.Render("Ready")
	}

	headerLine := lipgloss.JoinHorizontal(
		lipgloss.Center,
		title,
		" ",
		avatar,
		"  ",
		status,
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		headerLine,
		m.styles.RenderDivider(m.width),
	)
}

func (m Model) renderSidebar() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Conversations"))
	sb.WriteString("\n")

	active := m.history.ActiveID()
	for _, bucket := range history.Classify(m.history.Entries(), timeNow()) {
		sb.WriteString(m.styles.Subtitle.Render(bucket.Label))
		sb.WriteString("\n")
		for _, e := range bucket.Entries {
			name := truncate(e.Name, sidebarWidth-4)
			if e.ID == active {
				sb.WriteString(m.styles.Selected.Render("▸ " + name))
			} else {
				sb.WriteString(m.styles.Body.Render("  " + name))
			}
			sb.WriteString("\n")
		}
	}

	if m.history.Len() == 0 {
		sb.WriteString(m.styles.Muted.Render("No conversations yet"))
		sb.WriteString("\n")
	}
	if m.history.HasMore() {
		sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("%d of %d loaded", m.history.Len(), m.history.TotalCount())))
		sb.WriteString("\n")
	}

	return m.styles.Sidebar.
		Width(sidebarWidth).
		Height(m.viewport.Height + 1).
		Render(sb.String())
}

func (m Model) renderDocs() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Documents"))
	sb.WriteString("\n")

	if m.docs.UploadComplete() {
		sb.WriteString(m.styles.Success.Render("Upload complete") + m.styles.Muted.Render("  (any key to dismiss)"))
		sb.WriteString("\n\n")
	}

	docs := m.docs.Documents()
	switch {
	case !m.docs.Loaded():
		sb.WriteString(m.styles.Muted.Render("Loading..."))
		sb.WriteString("\n")
	case len(docs) == 0:
		sb.WriteString(m.styles.Muted.Render("No documents uploaded yet."))
		sb.WriteString("\n")
	default:
		for i, d := range docs {
			cursor := "  "
			if i == m.docsCursor {
				cursor = m.styles.Prompt.Render("> ")
			}
			name := truncate(d.File, 60)
			row := m.styles.Body.Render(name)
			if m.docs.Deleting(d.ID) {
				row = lipgloss.JoinHorizontal(lipgloss.Center, row, " ", m.spinner.View(), m.styles.Muted.Render(" deleting"))
			}
			sb.WriteString(cursor + row + "\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("u: upload  d: delete  r: refresh  Esc: back"))
	return sb.String()
}

func (m Model) renderErrorPanel() string {
	if m.err == nil {
		return ""
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(ui.Destructive).
		Render("Error")

	panelStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.Destructive).
		Padding(0, 1).
		Width(m.viewport.Width).
		MaxWidth(m.viewport.Width)

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, m.err.Error()))
}

func (m Model) renderFooter() string {
	hotkeys := "Alt+L: conversations | Alt+D: documents | Alt+N: new | /help"
	timestamp := timeNow().Format("15:04")
	help := m.styles.Muted.Render(fmt.Sprintf("%s | %s", timestamp, hotkeys))
	return lipgloss.NewStyle().
		MarginTop(1).
		Render(help)
}

func truncate(s string, n int) string {
	if n <= 3 {
		n = 3
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
