package main

import (
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// StartRunScheduler runs the full pipeline on a 5-field cron schedule
// (minute hour day-of-month month day-of-week), posting the run
// summary to Slack when a channel is configured.
// Examples: "0 6 * * *" (daily 6am), "0 6 * * 1" (Mondays 6am).
func StartRunScheduler(cfg Config, db *sql.DB) {
	schedule := strings.TrimSpace(cfg.RunSchedule)
	if schedule == "" {
		log.Println("Scheduler disabled (run_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid run_schedule '%s': %v — scheduler disabled", schedule, err)
		return
	}
	log.Printf("Pipeline runs scheduled (cron: %s)", schedule)

	for {
		now := time.Now()
		next := sched.Next(now)
		wait := next.Sub(now)
		log.Printf("Next pipeline run at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		time.Sleep(wait)

		summary, runErr := runFullPipeline(cfg, db)
		if runErr != nil {
			log.Printf("Scheduled run error: %v", runErr)
		}
		report := FormatRunSummary(summary)
		log.Printf("Scheduled run complete:\n%s", report)

		if cfg.SlackConfigured() {
			if err := PostRunSummary(cfg, summary, runErr); err != nil {
				log.Printf("Slack post error: %v", err)
			}
		}
	}
}

// runFullPipeline executes cluster then detect with one shared run id.
// A non-nil summary comes back even on error so the failure report
// still carries whatever counters were reached.
func runFullPipeline(cfg Config, db *sql.DB) (*RunSummary, error) {
	runID := newRunID(time.Now())
	clusters, _, summary, err := RunCluster(cfg, db, runID)
	if err != nil {
		return summary, err
	}
	if _, err := RunDetect(cfg, db, runID, clusters, summary); err != nil {
		return summary, err
	}
	return summary, nil
}
