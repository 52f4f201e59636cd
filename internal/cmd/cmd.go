package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli"
)

var now = time.Now()

var (
	defaultDuration  = ResolutionSprint
	defaultStartTime = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
)

const AppName = "roadmap"

// AppVersion is overridden at build time through the linker.
var AppVersion = "HEAD"

var (
	AppWebsite = "https://github.com/locate918/roadmap"
	AppScopes  = []string{"read+write+follow"}
)

type logFn func(string, ...interface{})

var info = func(s string, args ...interface{}) {
	fmt.Printf(s+"\n", args...)
}

var errFn = func(s string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, s+"\n", args...)
}

func MkDirIfNotExists(p string) error {
	fi, err := os.Stat(p)
	if err != nil && os.IsNotExist(err) {
		err = os.MkdirAll(p, os.ModeDir|os.ModePerm|0700)
	}
	if err != nil {
		return err
	}
	fi, err = os.Stat(p)
	if err != nil {
		return err
	} else if !fi.IsDir() {
		return fmt.Errorf("path exists, and is not a folder %s", p)
	}
	return nil
}

func CachePath() string {
	xdgCachePath, _ := os.UserCacheDir()
	return filepath.Join(xdgCachePath, AppName)
}

func DataPath() string {
	homeDir, _ := os.UserHomeDir()
	xdgDataPath := filepath.Join(homeDir, ".local", "share")
	appPath := filepath.Join(xdgDataPath, AppName)

	if _, err := os.Stat(appPath); err != nil && errors.Is(err, os.ErrNotExist) {
		err := MkDirIfNotExists(appPath)
		if err != nil {
			log.Fatalf("Error: %s", err.Error())
		}
	}
	return appPath
}

// stringValue walks the command hierarchy upwards until it finds a set
// string flag with the given name.
func stringValue(c *cli.Context, p string) string {
	for {
		if c.IsSet(p) {
			if val := c.String(p); val != "" {
				return val
			}
		}
		if c = c.Parent(); c == nil {
			break
		}
	}
	return ""
}

func stringSliceValues(c *cli.Context, p string) []string {
	for {
		if c.IsSet(p) {
			if values := c.StringSlice(p); values != nil {
				return values
			}
		}
		if c = c.Parent(); c == nil {
			break
		}
	}
	return nil
}

func parseStartDate(s string) time.Time {
	d := time.Now().UTC()
	if s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			d = parsed
		}
	}
	return d.Truncate(24 * time.Hour)
}

const (
	ResolutionDay      = 24 * time.Hour
	ResolutionWeek     = 7 * ResolutionDay
	ResolutionSprint   = 14 * ResolutionDay
	ResolutionMonthish = 31 * ResolutionDay
	ResolutionYearish  = 365 * ResolutionDay
)

// parseResolution maps the --resolution flag to a posting window.
func parseResolution(s string) (time.Duration, error) {
	switch s {
	case "", "day", "daily":
		return ResolutionDay, nil
	case "week", "weekly":
		return ResolutionWeek, nil
	case "sprint":
		return ResolutionSprint, nil
	}
	return 0, fmt.Errorf("invalid resolution %q, expected day, week or sprint", s)
}

func FormatDuration(d time.Duration) string {
	label := "hour"
	val := float64(d) / float64(time.Hour)
	if d > ResolutionDay {
		label = "day"
		val = float64(d) / float64(ResolutionDay)
	}
	if d > ResolutionWeek {
		label = "week"
		val = float64(d) / float64(ResolutionWeek)
	}
	if d > ResolutionMonthish {
		label = "month"
		val = float64(d) / float64(ResolutionMonthish)
	}
	if d > ResolutionYearish {
		label = "year"
		val = float64(d) / float64(ResolutionYearish)
	}
	if val != 1.0 && val != -1.0 {
		label = label + "s"
	}
	return fmt.Sprintf("%+.2g%s", val, label)
}
