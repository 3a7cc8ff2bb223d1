package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zkorum/agora/internal/adaptive"
	"github.com/zkorum/agora/internal/api"
	"github.com/zkorum/agora/internal/config"
	"github.com/zkorum/agora/internal/engine"
	"github.com/zkorum/agora/internal/errors"
)

var solveCmd = &cobra.Command{
	Use:   "solve <file>",
	Short: "Cluster the votes in a file and print the result",
	Long: `Cluster the votes in a file against the configured engine and print the
canonical result as JSON.

The file holds either a /math request body or a bare array of votes.
Use "-" to read from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

var solveSummary bool

func init() {
	rootCmd.AddCommand(solveCmd)

	solveCmd.Flags().BoolVar(&solveSummary, "summary", false, "print a summary of the solve instead of the result")
	solveCmd.Flags().Int("min-votes", 0, "minimum votes per participant (overrides clustering.min_vote_threshold)")
	solveCmd.Flags().Int("max-groups", 0, "initial group count bound (overrides clustering.max_group_count)")
	_ = viper.BindPFlag("clustering.min_vote_threshold", solveCmd.Flags().Lookup("min-votes"))
	_ = viper.BindPFlag("clustering.max_group_count", solveCmd.Flags().Lookup("max-groups"))
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	votes, err := parseVotes(data)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctrl := adaptive.NewController(newEngine(cfg),
		adaptive.WithPolicy(cfg.Scaling.Policy()),
		adaptive.WithLogger(logger),
		adaptive.WithGroupField(cfg.Clustering.GroupField),
	)
	report, err := ctrl.Run(cmd.Context(), votes, cfg.Clustering.MinVoteThreshold, cfg.Clustering.MaxGroupCount)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if solveSummary {
		fmt.Fprintln(out, renderSummary(report))
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report.Result)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read votes: %w", err)
	}
	return data, nil
}

// parseVotes accepts a /math request body or a bare vote array.
func parseVotes(data []byte) ([]engine.VoteRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.NewValidationError("input is empty")
	}

	if data[0] == '[' {
		var votes []engine.VoteRecord
		if err := json.Unmarshal(data, &votes); err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("invalid vote array: %v", err))
		}
		return votes, api.ValidateVotes(votes)
	}

	var req api.MathRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Votes == nil {
		return nil, errors.NewValidationError("is required").WithField("votes")
	}
	return req.Votes, api.ValidateVotes(req.Votes)
}

var (
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA")).MarginBottom(1)
	summaryLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Width(14)
	summaryKept  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	summaryMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	summaryBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6B7280")).
			Padding(0, 1)
)

// renderSummary formats a solve report for a terminal.
func renderSummary(r *adaptive.Report) string {
	var b strings.Builder
	b.WriteString(summaryTitle.Render("Clustering summary"))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(summaryLabel.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("outcome", string(r.Outcome))
	row("engine calls", fmt.Sprintf("%d", r.EngineCalls()))

	if r.Outcome == adaptive.OutcomeEmpty {
		row("result", summaryMuted.Render("not enough data to cluster"))
		return summaryBox.Render(strings.TrimRight(b.String(), "\n"))
	}

	d := r.Decision
	decision := d.Action.String()
	if d.Rule > 0 {
		decision = fmt.Sprintf("%s (rule %d)", decision, d.Rule)
	}
	row("decision", decision)
	row("reason", summaryMuted.Render(d.Reason))

	for i, a := range r.Attempts {
		line := fmt.Sprintf("%s  groups %v  imbalance %.3f", a.Constraint, a.Counts, a.Imbalance)
		if a == r.Kept {
			line = summaryKept.Render(line + "  kept")
		}
		row(fmt.Sprintf("attempt %d", i+1), line)
	}

	return summaryBox.Render(strings.TrimRight(b.String(), "\n"))
}
