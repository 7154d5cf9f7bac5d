// Package ui renders the chat widget to the terminal. Assistant replies are
// rendered as markdown; everything else is styled plain text.
package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"chatwidget/internal/session"
)

// Display provides the terminal UI for an interactive chat.
type Display struct {
	width    int
	renderer *glamour.TermRenderer

	promptStyle    lipgloss.Style
	userStyle      lipgloss.Style
	assistantStyle lipgloss.Style
	linkStyle      lipgloss.Style
	infoStyle      lipgloss.Style
	warnStyle      lipgloss.Style
	errorStyle     lipgloss.Style
	dimStyle       lipgloss.Style
	titleStyle     lipgloss.Style
}

// NewDisplay creates a display sized to the current terminal.
func NewDisplay() *Display {
	width := terminalWidth()

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(width-4, 100)),
	)

	return &Display{
		width:          width,
		renderer:       renderer,
		promptStyle:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		userStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		assistantStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		linkStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Underline(true),
		infoStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		warnStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		errorStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		dimStyle:       lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2),
	}
}

// PrintWelcome displays the startup banner.
func (d *Display) PrintWelcome(endpoint string) {
	fmt.Println(d.titleStyle.Render("chatwidget"))
	fmt.Println(d.dimStyle.Render("Endpoint: " + endpoint))
	fmt.Println(d.dimStyle.Render("Commands: /new | /sessions | /switch <n> | /clear | /exit"))
	fmt.Println()
}

// PrintPrompt displays the user input prompt.
func (d *Display) PrintPrompt() {
	fmt.Print(d.promptStyle.Render("❯") + " ")
}

// PrintUserMessage echoes a submitted user message.
func (d *Display) PrintUserMessage(text string) {
	header := d.userStyle.Render("You") + d.dimStyle.Render(" · "+time.Now().Format("15:04:05"))
	fmt.Printf("\n%s\n%s\n", header, text)
}

// PrintAssistantMessage renders an assistant reply, markdown body first and
// any attached links as a footer.
func (d *Display) PrintAssistantMessage(msg session.Message) {
	fmt.Printf("\n%s\n", d.assistantStyle.Render("Assistant"))

	body := msg.Content.Text
	if d.renderer != nil {
		if rendered, err := d.renderer.Render(body); err == nil {
			body = strings.TrimRight(rendered, "\n")
		}
	}
	fmt.Println(body)

	if len(msg.Content.Links) > 0 {
		fmt.Println(d.dimStyle.Render("Sources:"))
		for _, link := range msg.Content.Links {
			label := link.Label
			if label == "" {
				label = link.URL
			}
			fmt.Printf("  %s %s\n", d.linkStyle.Render(label), d.dimStyle.Render("("+link.URL+")"))
		}
	}
	fmt.Println()
}

// PrintThinking shows a transient waiting indicator line.
func (d *Display) PrintThinking() {
	fmt.Println(d.dimStyle.Render("…"))
}

// PrintSessionList renders all stored sessions, marking the active one.
func (d *Display) PrintSessionList(sessions []session.Session, activeID string) {
	if len(sessions) == 0 {
		d.PrintInfo("No sessions yet")
		return
	}
	for i, s := range sessions {
		marker := " "
		if s.ID == activeID {
			marker = d.promptStyle.Render("*")
		}
		line := fmt.Sprintf("%s %2d. %s", marker, i+1, s.Title)
		meta := fmt.Sprintf("  (%d messages, %s)", len(s.Messages), s.CreatedAt.Format("Jan 2 15:04"))
		fmt.Println(line + d.dimStyle.Render(meta))
	}
}

// PrintInfo displays an informational message.
func (d *Display) PrintInfo(msg string) {
	fmt.Println(d.infoStyle.Render("ℹ " + msg))
}

// PrintWarning displays a warning message.
func (d *Display) PrintWarning(msg string) {
	fmt.Println(d.warnStyle.Render("⚠ " + msg))
}

// PrintError displays an error message.
func (d *Display) PrintError(err error) {
	fmt.Println(d.errorStyle.Render("✗ " + err.Error()))
}

// PrintGoodbye displays the exit message.
func (d *Display) PrintGoodbye() {
	fmt.Println(d.infoStyle.Render("\nGoodbye!"))
}

// ClearScreen clears the terminal.
func (d *Display) ClearScreen() {
	fmt.Print("\033[2J\033[H")
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}
