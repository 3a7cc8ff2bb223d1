package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/zkorum/agora/internal/config"
	"github.com/zkorum/agora/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View service logs",
	Long: `View and filter the service log, including rotated backups.

Logs are only kept on disk when logging.dir is set.

Examples:
  # Show the last 50 entries
  agora-math logs

  # Everything for one request, as JSON
  agora-math logs -n 0 --request 5f0c... --format json

  # Warnings from the last hour for one conversation
  agora-math logs --level warn --since 1h --conversation abc123

  # Follow new entries
  agora-math logs -f`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsTail         int
	logsFollow       bool
	logsLevel        string
	logsSince        string
	logsRequest      string
	logsConversation string
	logsGrep         string
	logsFormat       string
	logsOutput       string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsRequest, "request", "", "Filter by request id")
	logsCmd.Flags().StringVar(&logsConversation, "conversation", "", "Filter by conversation slug id")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter by message substring")
	logsCmd.Flags().StringVar(&logsFormat, "format", logging.FormatText, "Output format (text/json/csv)")
	logsCmd.Flags().StringVarP(&logsOutput, "output", "o", "", "Write to a file instead of stdout")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Logging.Dir == "" {
		return fmt.Errorf("logging.dir is not set, logs are written to stderr only")
	}

	filter, err := logsFilter(time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if logsOutput != "" {
		f, err := os.Create(logsOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if logsFollow {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return followLogs(ctx, out, filepath.Join(cfg.Logging.Dir, logging.LogFileName), filter)
	}

	entries, err := logging.ReadEntries(cfg.Logging.Dir)
	if err != nil {
		return err
	}
	entries = filter.Apply(entries)
	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}
	return logging.WriteEntries(out, entries, logsFormat)
}

func logsFilter(now time.Time) (logging.Filter, error) {
	f := logging.Filter{
		RequestID:    logsRequest,
		Conversation: logsConversation,
		Contains:     logsGrep,
	}
	if logsLevel != "" {
		f.Level = logging.ParseLevel(logsLevel)
	}
	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return f, fmt.Errorf("invalid duration format: %w", err)
		}
		f.Since = now.Add(-d)
	}
	return f, nil
}

// followLogs prints entries appended to path until ctx is done. A rotation
// that recreates the file is followed from the start of the new file.
func followLogs(ctx context.Context, out io.Writer, path string, filter logging.Filter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to watch logs: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch logs: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { file.Close() }()
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	reader := bufio.NewReader(file)
	var pending strings.Builder
	drain := func() {
		for {
			chunk, err := reader.ReadString('\n')
			pending.WriteString(chunk)
			if err != nil {
				return
			}
			line := pending.String()
			pending.Reset()
			entries, _ := logging.ParseEntries(strings.NewReader(line))
			for _, e := range filter.Apply(entries) {
				fmt.Fprintln(out, logging.FormatEntry(e))
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				drain()
				next, err := os.Open(path)
				if err != nil {
					continue
				}
				file.Close()
				file = next
				reader.Reset(file)
				pending.Reset()
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				drain()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching logs: %w", err)
		}
	}
}
