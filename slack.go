package main

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"
)

// PostRunSummary posts the run report to the configured channel:
// headline counters, the top ranked clusters and any warnings.
func PostRunSummary(cfg Config, summary *RunSummary, runErr error) error {
	api := slack.New(cfg.SlackBotToken)

	var b strings.Builder
	if runErr != nil {
		fmt.Fprintf(&b, ":warning: Roadmap run %s failed: %v\n", summary.RunID, runErr)
	} else {
		fmt.Fprintf(&b, ":bar_chart: Roadmap run %s complete\n", summary.RunID)
	}
	fmt.Fprintf(&b, "Tickets: %d → clusters: %d\n", summary.Tickets, summary.Clusters)
	fmt.Fprintf(&b, "Evidence corpus: %d chunks (%d fetched, %d cached)\n", summary.CorpusChunks, summary.PagesFetched, summary.CacheHits)
	fmt.Fprintf(&b, "Verdicts: %d shipped / %d possibly / %d not shipped\n", summary.Shipped, summary.Possibly, summary.NotShipped)

	if len(summary.TopClusters) > 0 {
		b.WriteString("Top requirements:\n")
		for i, c := range summary.TopClusters {
			fmt.Fprintf(&b, "%d. %s — %s (%s)\n", i+1, c.ID, c.Label, c.PriorityLabel)
		}
	}
	if len(summary.Warnings) > 0 {
		fmt.Fprintf(&b, "Warnings: %d (see logs)\n", len(summary.Warnings))
	}

	_, _, err := api.PostMessage(
		cfg.SlackChannelID,
		slack.MsgOptionText(b.String(), false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return fmt.Errorf("posting run summary: %w", err)
	}
	return nil
}
