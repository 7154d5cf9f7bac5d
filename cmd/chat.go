package cmd

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"chatwidget/internal/backend"
	"chatwidget/internal/orchestrator"
	"chatwidget/internal/session"
	"chatwidget/internal/terminal"
	"chatwidget/internal/ui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ui.IsTerminal() {
			return errors.New("chat requires an interactive terminal")
		}

		st, closeStore, err := openStore()
		if err != nil {
			return errors.Wrap(err, "opening state store")
		}
		defer closeStore()

		repo := session.NewRepository(st)
		client := backend.NewClient(cfg.EndpointURL, cfg.APIKey)
		display := ui.NewDisplay()

		o := orchestrator.New(repo, client, &displayListener{display: display})
		return runChatLoop(cmd.Context(), o, repo, display)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// displayListener renders turn lifecycle events. Intermediate assistant
// updates are intentionally quiet; the final message is printed by the loop
// once the turn settles.
type displayListener struct {
	display *ui.Display
}

func (l *displayListener) TurnStarted(string)                       { l.display.PrintThinking() }
func (l *displayListener) AssistantUpdated(string, session.Message) {}
func (l *displayListener) TurnSettled(string)                       {}
func (l *displayListener) TurnErrored(string, error)                {}

func runChatLoop(ctx context.Context, o *orchestrator.Orchestrator, repo *session.Repository, display *ui.Display) error {
	display.PrintWelcome(cfg.EndpointURL)
	if sess := repo.GetActiveSession(); sess != nil && len(sess.Messages) > 0 {
		display.PrintInfo("Resuming session: " + sess.Title)
	}

	reader := terminal.NewReader()
	for {
		display.PrintPrompt()
		input, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				display.PrintGoodbye()
				return nil
			}
			return errors.Wrap(err, "reading input")
		}

		if strings.HasPrefix(input, "/") {
			if quit := handleCommand(input, repo, display); quit {
				display.PrintGoodbye()
				return nil
			}
			continue
		}
		if input == "" {
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		msg := o.SubmitTurn(turnCtx, input)
		cancel()
		if msg != nil {
			display.PrintAssistantMessage(*msg)
		}
	}
}

// handleCommand runs one slash command, returning true when the loop should
// exit.
func handleCommand(input string, repo *session.Repository, display *ui.Display) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/exit", "/quit":
		return true

	case "/clear":
		display.ClearScreen()

	case "/new":
		sess := repo.CreateSession("")
		display.PrintInfo("Started session: " + sess.Title)

	case "/sessions":
		active := ""
		if sess := repo.GetActiveSession(); sess != nil {
			active = sess.ID
		}
		display.PrintSessionList(repo.ListSessions(), active)

	case "/switch":
		if len(fields) < 2 {
			display.PrintWarning("Usage: /switch <number>")
			return false
		}
		sessions := repo.ListSessions()
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > len(sessions) {
			display.PrintWarning("No such session; run /sessions to see the list")
			return false
		}
		repo.SetActiveSession(sessions[n-1].ID)
		display.PrintInfo("Switched to: " + sessions[n-1].Title)

	case "/delete":
		if len(fields) < 2 {
			display.PrintWarning("Usage: /delete <number>")
			return false
		}
		sessions := repo.ListSessions()
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > len(sessions) {
			display.PrintWarning("No such session; run /sessions to see the list")
			return false
		}
		remaining := repo.DeleteSession(sessions[n-1].ID)
		display.PrintInfo("Deleted; " + strconv.Itoa(remaining) + " session(s) remain")

	default:
		display.PrintWarning("Unknown command: " + fields[0])
	}
	return false
}
