package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/locate918/roadmap/internal/cmd"
)

func main() {
	var err error

	ctl := cli.App{
		Name:    fmt.Sprintf("%sctl", cmd.AppName),
		Version: cmd.AppVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:   "path",
				Usage:  "The path for storage",
				Value:  cmd.DataPath(),
				EnvVar: "ROADMAP_PATH",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Output debug messages",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Do not save or publish anything",
			},
		},
		Commands: []cli.Command{
			cmd.ShowScopesCmd,
			cmd.SyncCmd,
			cmd.ListCmd,
			cmd.SourcesCmd,
			cmd.StatusCmd,
			cmd.CheckCmd,
			cmd.ExportCmd,
			cmd.AuthorizeCmd,
			cmd.PostCmd,
			cmd.Server,
		},
	}

	err = ctl.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
