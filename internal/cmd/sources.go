package cmd

import (
	"fmt"
	"path"

	"github.com/urfave/cli"

	"github.com/locate918/roadmap/sources"
	"github.com/locate918/roadmap/storage/boltdb"
)

var SourcesCmd = cli.Command{
	Name:  "sources",
	Usage: "Lists the candidate event source catalog",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "kind",
			Usage: "Which source kinds to list",
		},
		&cli.StringSliceFlag{
			Name:  "priority",
			Usage: "Keep only sources with one of these priorities",
		},
		&cli.StringSliceFlag{
			Name:  "status",
			Usage: "Keep only sources with one of these statuses",
		},
		&cli.StringFlag{
			Name:  "file",
			Usage: "Parse the source list document instead of reading the store",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Output debug messages",
		},
	},
	Action: listSources,
}

func listSources(c *cli.Context) error {
	kinds := sources.GetKinds(stringSliceValues(c, "kind"))

	f, err := New(c.Bool("debug") || c.GlobalBool("debug"), true, path.Join(c.GlobalString("path"), boltdb.DefaultFile))
	if err != nil {
		return err
	}

	var catalog sources.Catalog
	lastProbe := func(string) (sources.Probe, bool) { return sources.Probe{}, false }
	if file := c.String("file"); file != "" {
		if catalog, err = sources.ParseSourcesFile(file); err != nil {
			return err
		}
		catalog = catalog.Filter(kinds, nil, nil)
		catalog.Sort()
	} else {
		st := boltdb.New(boltdb.Config{Path: f.path})
		if catalog, err = st.LoadSources(kinds...); err != nil {
			return fmt.Errorf("unable to load sources: %w", err)
		}
		lastProbe = func(host string) (sources.Probe, bool) {
			history, err := st.LoadProbes(host, fullWindow)
			if err != nil || len(history) == 0 {
				return sources.Probe{}, false
			}
			return history[len(history)-1], true
		}
	}

	catalog = catalog.Filter(nil, stringSliceValues(c, "priority"), stringSliceValues(c, "status"))
	if len(catalog) == 0 {
		fmt.Printf("nothing found\n")
		return nil
	}
	for _, s := range catalog {
		f.log("%v checked:%s", s, s.LastCheckedLabel())
		if last, ok := lastProbe(s.Host()); ok {
			f.log("\t%v", last)
		}
		if f.debug && s.Notes != "" {
			f.log("\t%s", s.Notes)
		}
	}
	return nil
}
