package cmd

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/urfave/cli"

	"github.com/locate918/roadmap"
	"github.com/locate918/roadmap/export"
	"github.com/locate918/roadmap/ical"
	"github.com/locate918/roadmap/plan"
	"github.com/locate918/roadmap/storage/boltdb"
)

var ExportCmd = cli.Command{
	Name:  "export",
	Usage: "Exports the stored plan as a gantt chart, an iCal feed or a CSV catalog",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format: gantt, ics or csv",
			Value: "gantt",
		},
		&cli.StringSliceFlag{
			Name:  "scope",
			Usage: "Which scopes an ics export covers",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Write to this file instead of stdout",
		},
		&cli.BoolFlag{
			Name:  "refresh",
			Usage: "Splice the gantt chart back into the roadmap document",
		},
		&cli.StringFlag{
			Name:  "file",
			Usage: "Roadmap document to refresh",
			Value: DefaultPlanFile,
		},
	},
	Action: exportPlan,
}

// planTitle reads the embedded account name, which doubles as the chart
// title.
func planTitle() string {
	if data, err := fs.ReadFile(roadmap.AccountDetails, "static/name.txt"); err == nil {
		if name := strings.TrimSpace(string(data)); name != "" {
			return name
		}
	}
	return "Locate918 roadmap"
}

func exportPlan(c *cli.Context) error {
	st := boltdb.New(boltdb.Config{
		Path: path.Join(c.GlobalString("path"), boltdb.DefaultFile),
	})

	var data []byte
	format := strings.ToLower(c.String("format"))
	switch format {
	case "gantt":
		entries, err := st.LoadEntries(fullWindow, plan.ValidScopes...)
		if err != nil {
			return fmt.Errorf("unable to load entries: %w", err)
		}
		if len(entries) == 0 {
			return fmt.Errorf("no entries in the store, run sync first")
		}
		gantt := export.Gantt(planTitle(), entries)
		if c.Bool("refresh") {
			return refreshGantt(c.String("file"), gantt)
		}
		data = []byte(gantt)
	case "ics":
		scopes := plan.GetScopes(stringSliceValues(c, "scope"))
		entries, err := st.LoadEntries(fullWindow, scopes...)
		if err != nil {
			return fmt.Errorf("unable to load entries: %w", err)
		}
		label := ""
		if len(scopes) == 1 {
			label = scopes[0]
		}
		b := &bytes.Buffer{}
		if err := ical.Calendar(label, AppVersion, entries).Encode(b); err != nil {
			return err
		}
		data = b.Bytes()
	case "csv":
		catalog, err := st.LoadSources()
		if err != nil {
			return fmt.Errorf("unable to load sources: %w", err)
		}
		if data, err = export.CatalogCSV(catalog); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid format %q, expected gantt, ics or csv", format)
	}

	if out := c.String("output"); out != "" {
		return writeFileAtomic(out, data)
	}
	_, err := os.Stdout.Write(data)
	return err
}

func refreshGantt(file, gantt string) error {
	doc, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	updated, err := export.SpliceGantt(doc, gantt)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	if bytes.Equal(doc, updated) {
		info("%s is up to date", file)
		return nil
	}
	if err := writeFileAtomic(file, updated); err != nil {
		return err
	}
	info("updated %s", file)
	return nil
}

func writeFileAtomic(name string, data []byte) error {
	pending, err := renameio.NewPendingFile(name)
	if err != nil {
		return fmt.Errorf("unable to create pending file for %s: %w", name, err)
	}
	defer pending.Cleanup()
	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("unable to write %s: %w", name, err)
	}
	return pending.CloseAtomicallyReplace()
}
