package cmd

import (
	"context"
	"fmt"
	"path"
	"syscall"
	"time"

	"github.com/urfave/cli"

	w "git.sr.ht/~mariusor/wrapper"
	"github.com/locate918/roadmap/ical"
	"github.com/locate918/roadmap/storage/boltdb"
)

var Server = cli.Command{
	Name:    "server",
	Aliases: []string{"start"},
	Usage:   "Starts the iCal feed server",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Output debug messages",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Set hostname on which to listen to",
			Value: "localhost",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "Set the port on which to listen",
			Value: 9999,
		},
		&cli.StringFlag{
			Name:  "templates",
			Usage: "Directory holding the HTML templates for the index page",
			Value: ical.DefaultTemplateDir,
		},
	},
	Action: serverStart,
}

var wait = 100 * time.Millisecond

func serverStart(c *cli.Context) error {
	listen := fmt.Sprintf("%s:%d", c.String("host"), c.Int("port"))
	info("Listening on %s", listen)

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	db := path.Join(c.GlobalString("path"), boltdb.DefaultFile)
	// Get start/stop functions for the http server
	srvRun, srvStop := w.HttpServer(w.Handler(ical.Routes(db, c.String("templates"), AppVersion)), w.OnTCP(listen))
	w.RegisterSignalHandlers(w.SignalHandlers{
		syscall.SIGHUP: func(_ chan int) {
			info("SIGHUP received, reloading configuration")
		},
		syscall.SIGINT: func(exit chan int) {
			info("SIGINT received, stopping")
			exit <- 0
		},
		syscall.SIGTERM: func(exit chan int) {
			info("SIGTERM received, force stopping")
			exit <- 0
		},
		syscall.SIGQUIT: func(exit chan int) {
			info("SIGQUIT received, force stopping with core-dump")
			exit <- 0
		},
	}).Exec(func() error {
		if err := srvRun(); err != nil {
			errFn("Error: %s", err)
			return err
		}
		var err error
		// Doesn't block if no connections, but will otherwise wait until the timeout deadline.
		go func(e error) {
			if err = srvStop(ctx); err != nil {
				errFn("Error: %s", err)
			}
		}(err)
		return err
	})

	return nil
}
