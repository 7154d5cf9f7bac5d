package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"chatwidget/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage stored chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, done, err := openRepository()
		if err != nil {
			return err
		}
		defer done()

		sessions := repo.ListSessions()
		if len(sessions) == 0 {
			fmt.Println("No sessions stored.")
			return nil
		}

		active := ""
		if sess := repo.GetActiveSession(); sess != nil {
			active = sess.ID
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, " \tID\tTitle\tMessages\tCreated")
		for _, s := range sessions {
			marker := " "
			if s.ID == active {
				marker = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				marker, shortID(s.ID), s.Title, len(s.Messages), s.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a session's transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, done, err := openRepository()
		if err != nil {
			return err
		}
		defer done()

		sess := findSession(repo, args[0])
		if sess == nil {
			return errors.Errorf("no session matching %q", args[0])
		}

		fmt.Printf("%s (%s)\n\n", sess.Title, sess.CreatedAt.Format("2006-01-02 15:04"))
		for _, msg := range sess.Messages {
			fmt.Printf("[%s] %s\n", msg.Role, msg.Content.Text)
			for _, link := range msg.Content.Links {
				label := link.Label
				if label == "" {
					label = link.URL
				}
				fmt.Printf("    - %s (%s)\n", label, link.URL)
			}
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, done, err := openRepository()
		if err != nil {
			return err
		}
		defer done()

		sess := findSession(repo, args[0])
		if sess == nil {
			return errors.Errorf("no session matching %q", args[0])
		}
		remaining := repo.DeleteSession(sess.ID)
		fmt.Printf("Deleted %q; %d session(s) remain.\n", sess.Title, remaining)
		return nil
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a fresh session and make it active",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, done, err := openRepository()
		if err != nil {
			return err
		}
		defer done()

		sess := repo.CreateSession("")
		fmt.Printf("Created session %s.\n", shortID(sess.ID))
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd, sessionsNewCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func openRepository() (*session.Repository, func(), error) {
	st, closeStore, err := openStore()
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening state store")
	}
	return session.NewRepository(st), closeStore, nil
}

// findSession resolves a full or prefix session id.
func findSession(repo *session.Repository, id string) *session.Session {
	if sess := repo.GetSession(id); sess != nil {
		return sess
	}
	for _, s := range repo.ListSessions() {
		if strings.HasPrefix(s.ID, id) {
			match := s
			return &match
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
