package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/logyard/queuedash/internal/annotate"
	"github.com/logyard/queuedash/internal/client"
	"github.com/logyard/queuedash/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal dashboard",
	Long:  "Opens an interactive terminal dashboard against a running queuedash server, with the same drill-down navigation as the web client.",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().String("url", "", "dashboard URL (default $QUEUEDASH_URL or "+defaultURL+")")
	tuiCmd.Flags().String("token", "", "operator token for agent start/stop (default $QUEUEDASH_TOKEN)")
	tuiCmd.Flags().String("repo-url", "", "repository URL for PR links (default $QUEUEDASH_REPO_URL)")
}

func runTUI(cmd *cobra.Command, _ []string) error {
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("QUEUEDASH_TOKEN")
	}
	repoURL, _ := cmd.Flags().GetString("repo-url")
	if repoURL == "" {
		repoURL = os.Getenv("QUEUEDASH_REPO_URL")
	}

	c, err := client.NewClient(client.Config{BaseURL: serverURL(cmd), Token: token})
	if err != nil {
		return err
	}

	model := tui.New(c, annotate.New(annotate.DefaultPolicy(repoURL)))
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
