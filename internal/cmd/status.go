package cmd

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/locate918/roadmap/plan"
	"github.com/locate918/roadmap/storage"
	"github.com/locate918/roadmap/storage/boltdb"
)

// wide enough to cover any year the plan documents can touch
var fullWindow = storage.Cursor(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), 20*365*24*time.Hour)

var StatusCmd = cli.Command{
	Name:  "status",
	Usage: "Prints a progress report over the stored plan",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "date",
			Usage: "Date to report against",
			Value: defaultStartTime.Format("2006-01-02"),
		},
		&cli.DurationFlag{
			Name:  "horizon",
			Usage: "How far ahead to look for upcoming work",
			Value: ResolutionSprint,
		},
	},
	Action: printStatus,
}

func printStatus(c *cli.Context) error {
	when := parseStartDate(stringValue(c, "date"))
	horizon := c.Duration("horizon")

	st := boltdb.New(boltdb.Config{
		Path: path.Join(c.GlobalString("path"), boltdb.DefaultFile),
	})
	entries, err := st.LoadEntries(fullWindow, plan.ValidScopes...)
	if err != nil {
		return fmt.Errorf("unable to load entries: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("no entries in the store, run sync first")
	}

	start, end := plan.Window(entries)
	info("Plan window: %s - %s", start.Format("2006-01-02"), end.AddDate(0, 0, -1).Format("2006-01-02"))
	info("Report date: %s", when.Format("2006-01-02 Mon"))
	if !when.Before(start) && when.Before(end) {
		week := 7 * 24 * time.Hour
		info("Week %d of %d", int(when.Sub(start)/week)+1, int((end.Sub(start)+week-1)/week))
	}
	if sprint, ok := plan.SprintAt(entries, when); ok {
		info("%s: %s", sprint.Name, sprint.Notes)
	}

	mDone, mTotal := plan.Progress(entries.Scoped(plan.ScopeMilestone))
	tDone, tTotal := plan.Progress(entries.Scoped(plan.ScopeTask))
	info("Progress: %d/%d milestones, %d/%d tasks", mDone, mTotal, tDone, tTotal)

	printGroup := func(label string, group plan.Entries) {
		if len(group) == 0 {
			return
		}
		info("%s:", label)
		for _, e := range group {
			info("\t%v", e)
		}
	}
	printGroup("In flight", plan.Active(entries, when))
	printGroup(fmt.Sprintf("Due in %s", FormatDuration(horizon)), plan.Upcoming(entries, when, horizon))
	printGroup("Overdue", plan.Overdue(entries, when))
	printGroup("At risk", plan.AtRisk(entries))

	if chain, total := plan.CriticalPath(entries); len(chain) > 0 {
		info("Critical path: %s (%s)", strings.Join(chain, " -> "), FormatDuration(total))
	}
	return nil
}
