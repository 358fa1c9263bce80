package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/logyard/queuedash/internal/client"
	"github.com/logyard/queuedash/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the status summary of a running dashboard",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var (
	boldStyle = lipgloss.NewStyle().Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func init() {
	statusCmd.Flags().String("url", "", "dashboard URL (default $QUEUEDASH_URL or "+defaultURL+")")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	c, err := client.NewClient(client.Config{BaseURL: serverURL(cmd)})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	s, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("status from %s: %w", c.BaseURL(), err)
	}
	printStatus(cmd.OutOrStdout(), s)
	return nil
}

func printStatus(w io.Writer, s *model.StatusSummary) {
	section := func(title, key string) {
		fmt.Fprintf(w, "\n%s\n", boldStyle.Render(title))
		if msg, ok := s.Errors[key]; ok {
			fmt.Fprintf(w, "  %s\n", errStyle.Render("error: "+msg))
		}
	}

	fmt.Fprintf(w, "queuedash status at %s\n", s.Timestamp.Local().Format("2006-01-02 15:04:05"))

	section("Queues", model.SectionQueues)
	for _, q := range s.Queues {
		fmt.Fprintf(w, "  %-28s queued %-4d in progress %-4d done/1h %d\n",
			label(q.Label, q.Name), q.Queued, q.InProgress, q.DoneLastHour)
	}

	section("Root work items", model.SectionRootWorkItems)
	if len(s.RootWorkItems) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, wi := range s.RootWorkItems {
		fmt.Fprintf(w, "  #%-5d %-12s %s\n", wi.ID, wi.Status, wi.Title)
	}

	section("Agents", model.SectionAgents)
	for _, a := range s.Agents {
		fmt.Fprintf(w, "  %-28s total %-3d working %-3d idle %d\n", label(a.Label, a.Name), a.Total, a.Working, a.Idle)
	}

	section("Announcements", model.SectionAnnouncements)
	if len(s.Announcements) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, a := range s.Announcements {
		fmt.Fprintf(w, "  [%s] %s\n", a.Type, strings.Join(strings.Fields(a.Message), " "))
	}
}

func label(l, name string) string {
	if l == "" {
		return name
	}
	return l
}
