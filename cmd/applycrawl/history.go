package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghoulbites/applycrawl/internal/config"
	"github.com/ghoulbites/applycrawl/internal/database"
)

// defaultHistoryLimit caps rows shown by the history command.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command, which lists past runs and
// recently found candidate pages from the run store.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past crawl runs and discovered application pages",
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum rows to show")
	cmd.Flags().Bool("candidates", false, "List recent candidate pages instead of runs")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	showCandidates, err := cmd.Flags().GetBool("candidates")
	if err != nil {
		return err
	}

	db, err := database.Open(config.XDGDataDir())
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := cmd.OutOrStdout()
	if showCandidates {
		pages, err := db.RecentCandidates(ctx, limit)
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			fmt.Fprintln(out, "no candidate pages recorded yet")
			return nil
		}
		for _, page := range pages {
			marker := " "
			if page.IsActualApplication {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-30s %s\n", marker, page.TargetName, page.URL)
		}
		return nil
	}

	runs, err := db.RunSummaries(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no crawl runs recorded yet")
		return nil
	}
	for _, run := range runs {
		ended := "running"
		if !run.EndedAt.IsZero() {
			ended = run.EndedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(out, "%s  %s  visited=%d candidates=%d  targets=%s\n",
			run.StartedAt.Format("2006-01-02 15:04"), ended,
			run.Visited, run.Candidates, strings.Join(run.Targets, ","))
	}
	return nil
}
