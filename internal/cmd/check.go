package cmd

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/urfave/cli"

	"github.com/locate918/roadmap/sources"
	"github.com/locate918/roadmap/storage/boltdb"
)

var CheckCmd = cli.Command{
	Name:  "check",
	Usage: "Probes the catalog sources and reports reachability",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "kind",
			Usage: "Which source kinds to check",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per request timeout",
			Value: 10 * time.Second,
		},
		&cli.Float64Flag{
			Name:  "rate",
			Usage: "Request starts per second across all jobs",
			Value: 2,
		},
		&cli.IntFlag{
			Name:  "jobs",
			Usage: "How many probes to run concurrently",
			Value: 4,
		},
		&cli.StringFlag{
			Name:  "user-agent",
			Usage: "Override the probing user agent",
		},
		&cli.BoolFlag{
			Name:  "save",
			Usage: "Persist the probe results and stamp the catalog",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Output debug messages",
		},
	},
	Action: checkSources,
}

func checkSources(c *cli.Context) error {
	kinds := sources.GetKinds(stringSliceValues(c, "kind"))
	save := c.Bool("save")

	f, err := New(c.Bool("debug") || c.GlobalBool("debug"), !save, path.Join(c.GlobalString("path"), boltdb.DefaultFile))
	if err != nil {
		return err
	}

	st := boltdb.New(boltdb.Config{Path: f.path, ErrFn: boltdb.LoggerFn(f.err)})
	catalog, err := st.LoadSources(kinds...)
	if err != nil {
		return fmt.Errorf("unable to load sources: %w", err)
	}
	if len(catalog) == 0 {
		return fmt.Errorf("no sources in the store, run sync first")
	}

	opts := []sources.ProberOption{
		sources.WithTimeout(c.Duration("timeout")),
		sources.WithRate(c.Float64("rate")),
		sources.WithUserAgent(c.String("user-agent")),
	}
	if f.debug {
		opts = append(opts, sources.WithLogger(sources.LoggerFn(f.log), sources.LoggerFn(f.err)))
	}
	p := sources.NewProber(opts...)

	probes := p.Check(context.Background(), catalog, c.Int("jobs"))

	ok := 0
	for i, pr := range probes {
		if pr.OK() {
			ok++
		}
		f.log("%v", pr)
		catalog[i].LastChecked = pr.CheckedAt
	}
	f.log("%d/%d sources reachable", ok, len(probes))

	if !save {
		return nil
	}
	if err := st.SaveProbes(probes...); err != nil {
		return fmt.Errorf("unable to save probes: %w", err)
	}
	return st.SaveSources(catalog)
}
