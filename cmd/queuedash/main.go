// Command queuedash serves the task queue dashboard and its terminal client.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

const defaultURL = "http://localhost:3000"

var rootCmd = &cobra.Command{
	Use:           "queuedash",
	Short:         "Read-only dashboard for the task queue pipeline",
	Long:          "queuedash shows queue depths, in-flight work, running agents and announcements,\nwith drill-down into every task, work item and agent.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(keygenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger installs a JSON logger at the named level as the default.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// serverURL resolves the --url flag, falling back to QUEUEDASH_URL.
func serverURL(cmd *cobra.Command) string {
	u, _ := cmd.Flags().GetString("url")
	if u == "" {
		u = os.Getenv("QUEUEDASH_URL")
	}
	if u == "" {
		u = defaultURL
	}
	return u
}
