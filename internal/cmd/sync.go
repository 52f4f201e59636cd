package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli"

	"github.com/locate918/roadmap/plan"
	"github.com/locate918/roadmap/sources"
	"github.com/locate918/roadmap/storage/boltdb"
)

const (
	DefaultPlanFile    = "ROADMAP.md"
	DefaultSourcesFile = "SOURCES.md"
)

var SyncCmd = cli.Command{
	Name:  "sync",
	Usage: "Parses the roadmap documents and updates the snapshot store",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Usage: "Roadmap document to parse",
			Value: DefaultPlanFile,
		},
		&cli.StringFlag{
			Name:  "sources",
			Usage: "Source list document to parse",
			Value: DefaultSourcesFile,
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Output debug messages",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Parse and validate without persisting",
		},
		&cli.BoolFlag{
			Name:  "watch",
			Usage: "Keep running and re-sync when the documents change",
		},
	},
	Action: syncDocuments,
}

type syncer struct {
	debug  bool
	dryRun bool
	path   string
	err    logFn
	log    logFn
}

func New(debug, dryRun bool, dbPath string) (*syncer, error) {
	logFn := func(s string, args ...interface{}) {
		fmt.Printf(s, args...)
		fmt.Println()
	}
	errFn := func(s string, args ...interface{}) {
		fmt.Fprintf(os.Stderr, s, args...)
		fmt.Fprintln(os.Stderr)
	}
	return &syncer{
		debug:  debug,
		dryRun: dryRun,
		path:   dbPath,
		log:    logFn,
		err:    errFn,
	}, nil
}

// SyncPlan parses and validates the roadmap document, then persists every
// entry whose stored copy differs. Returns the parsed entries and how many
// of them were new or changed.
func (s *syncer) SyncPlan(file string) (plan.Entries, int, error) {
	entries, err := plan.ParseRoadmapFile(file)
	if err != nil {
		return nil, 0, err
	}
	if err := plan.Validate(entries); err != nil {
		return nil, 0, err
	}

	st := boltdb.New(boltdb.Config{Path: s.path, ErrFn: boltdb.LoggerFn(s.err)})

	changed := 0
	toSave := make(plan.Entries, 0, len(entries))
	for _, e := range entries {
		old := st.LoadEntry(e.Scope, e.StartTime, e.ID)
		if old.IsValid() && old.Equals(e) {
			continue
		}
		if s.debug {
			verb := "new"
			if old.IsValid() {
				verb = "changed"
			}
			s.log("%s %v", verb, e)
		}
		changed++
		toSave = append(toSave, e)
	}
	if s.dryRun || len(toSave) == 0 {
		return entries, changed, nil
	}
	return entries, changed, st.SaveEntries(toSave)
}

// SyncSources parses and validates the source list and persists the
// catalog, keeping the stored LastChecked stamps of unchanged sources.
func (s *syncer) SyncSources(file string) (sources.Catalog, int, error) {
	catalog, err := sources.ParseSourcesFile(file)
	if err != nil {
		return nil, 0, err
	}
	if err := sources.Validate(catalog); err != nil {
		return nil, 0, err
	}

	st := boltdb.New(boltdb.Config{Path: s.path, ErrFn: boltdb.LoggerFn(s.err)})

	stored, err := st.LoadSources()
	if err != nil {
		return nil, 0, err
	}
	changed := 0
	for i, src := range catalog {
		old, ok := stored.Find(src.Host())
		if ok {
			catalog[i].LastChecked = old.LastChecked
		}
		if !ok || !old.Equals(src) {
			if s.debug {
				verb := "new"
				if ok {
					verb = "changed"
				}
				s.log("%s %v", verb, src)
			}
			changed++
		}
	}
	if s.dryRun {
		return catalog, changed, nil
	}
	return catalog, changed, st.SaveSources(catalog)
}

func (s *syncer) Run(planFile, sourcesFile string) error {
	entries, changed, err := s.SyncPlan(planFile)
	if err != nil {
		return err
	}
	s.log("%s: %d entries, %d changed", planFile, len(entries), changed)

	catalog, changedSources, err := s.SyncSources(sourcesFile)
	if err != nil {
		return err
	}
	s.log("%s: %d sources, %d changed", sourcesFile, len(catalog), changedSources)
	return nil
}

const debounceDuration = 500 * time.Millisecond

// Watch re-runs the sync whenever one of the documents changes, until
// interrupted. The parent directories are watched so editors that replace
// the file on save keep triggering events.
func (s *syncer) Watch(planFile, sourcesFile string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	defer watcher.Close()

	watched := map[string]bool{
		filepath.Clean(planFile):    true,
		filepath.Clean(sourcesFile): true,
	}
	dirs := map[string]bool{}
	for f := range watched {
		dirs[filepath.Dir(f)] = true
	}
	for d := range dirs {
		if err := watcher.Add(d); err != nil {
			return fmt.Errorf("unable to watch %s: %w", d, err)
		}
	}
	s.log("watching %s and %s", planFile, sourcesFile)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	var debounce *time.Timer
	for {
		select {
		case <-interrupt:
			s.log("stopping")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDuration, func() {
				if err := s.Run(planFile, sourcesFile); err != nil {
					s.err("sync failed: %s", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.err("watch error: %s", err)
		}
	}
}

func syncDocuments(c *cli.Context) error {
	debug := c.Bool("debug") || c.GlobalBool("debug")
	dryRun := c.Bool("dry-run") || c.GlobalBool("dry-run")

	planFile := c.String("file")
	sourcesFile := c.String("sources")

	s, err := New(debug, dryRun, path.Join(c.GlobalString("path"), boltdb.DefaultFile))
	if err != nil {
		return err
	}

	if err := s.Run(planFile, sourcesFile); err != nil {
		if !c.Bool("watch") {
			return err
		}
		s.err("sync failed: %s", err)
	}
	if !c.Bool("watch") {
		return nil
	}
	return s.Watch(planFile, sourcesFile)
}
