package cmd

import (
	"fmt"
	"path"
	"strings"

	"github.com/urfave/cli"

	"github.com/locate918/roadmap/plan"
	"github.com/locate918/roadmap/storage"
	"github.com/locate918/roadmap/storage/boltdb"
)

var ListCmd = cli.Command{
	Name:  "list",
	Usage: "Lists plan entries from the snapshot store",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "scope",
			Usage: "Which scopes to list",
		},
		&cli.StringSliceFlag{
			Name:  "status",
			Usage: "Keep only entries with one of these statuses",
		},
		&cli.StringSliceFlag{
			Name:  "stream",
			Usage: "Keep only entries belonging to one of these workstreams",
		},
		&cli.StringSliceFlag{
			Name:  "owner",
			Usage: "Keep only entries assigned to one of these owners",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Output debug messages",
		},
		&cli.StringFlag{
			Name:  "start",
			Usage: "Date at which to start",
			Value: defaultStartTime.Format("2006-01-02"),
		},
		&cli.DurationFlag{
			Name:  "end",
			Usage: "Date interval to list",
			Value: defaultDuration,
		},
	},
	Action: listEntries,
}

func matchesAny(s string, values []string) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func listEntries(c *cli.Context) error {
	scopes := plan.GetScopes(stringSliceValues(c, "scope"))
	statuses := stringSliceValues(c, "status")
	streams := stringSliceValues(c, "stream")
	owners := stringSliceValues(c, "owner")

	start := parseStartDate(c.String("start"))
	duration := c.Duration("end")

	f, err := New(c.Bool("debug") || c.GlobalBool("debug"), true, path.Join(c.GlobalString("path"), boltdb.DefaultFile))
	if err != nil {
		return err
	}

	if f.debug {
		f.log("Loading entries for period: %s - %s", start.Format("2006-01-02 Mon"), start.Add(duration).Format("2006-01-02 Mon"))
	}
	st := boltdb.New(boltdb.Config{Path: f.path})
	entries, err := st.LoadEntries(storage.Cursor(start, duration), scopes...)
	if err != nil {
		return fmt.Errorf("unable to load entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Printf("nothing found\n")
		return nil
	}
	for _, e := range entries {
		if !matchesAny(e.Status, statuses) || !matchesAny(e.Workstream, streams) || !matchesAny(e.Owner, owners) {
			continue
		}
		f.log("%v", e)
		if f.debug && e.Notes != "" {
			f.log("\t%s", e.Notes)
		}
	}
	return nil
}
