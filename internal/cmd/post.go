package cmd

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/McKael/madon"
	"github.com/urfave/cli"
	"golang.org/x/oauth2"

	"github.com/locate918/roadmap/internal/post"
	"github.com/locate918/roadmap/plan"
	"github.com/locate918/roadmap/storage"
	"github.com/locate918/roadmap/storage/boltdb"
)

var PostCmd = cli.Command{
	Name:  "post",
	Usage: "Posts roadmap digests to the Fediverse",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "scope",
			Usage: "Which scopes to include in the digest",
			Value: (*cli.StringSlice)(&plan.ValidScopes),
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Output debug messages",
		},
		&cli.StringFlag{
			Name:  "date",
			Usage: "Date at which to start",
			Value: defaultStartTime.Format("2006-01-02"),
		},
		&cli.StringFlag{
			Name:  "resolution",
			Usage: "Period covered by one digest: day, week or sprint",
		},
		&cli.StringSliceFlag{
			Name:  "instance",
			Usage: "Only post to these instances",
		},
		&cli.StringSliceFlag{
			Name:  "type",
			Usage: "Only post to instances of these types: Mastodon, FedBOX, oni",
		},
	},
	Action: Post(ResolutionDay),
}

type PostConfig struct {
	Path       string
	DryRun     bool
	Date       time.Time
	Resolution time.Duration
	PostFns    []post.PosterFn
	infFn      logFn
	errFn      logFn
}

func shouldPostToInstance(instances []string, inst string) bool {
	if len(instances) == 0 {
		return true
	}
	name := urlHost(inst)
	for _, instance := range instances {
		if strings.EqualFold(urlHost(instance), name) {
			return true
		}
	}
	return false
}

func urlHost(u string) string {
	uu, err := url.ParseRequestURI(u)
	if err != nil {
		return ""
	}
	return uu.Host
}

func typeIsAllowed(checkTypes []string, validTypes ...string) bool {
	if len(checkTypes) == 0 {
		return true
	}
	for _, sv := range checkTypes {
		for _, typ := range validTypes {
			if strings.EqualFold(sv, typ) {
				return true
			}
		}
	}
	return false
}

const (
	TypeMastodon = "mastodon"
	TypeONI      = "oni"
	TypeFedBOX   = "fedbox"
)

func Post(resolution time.Duration) cli.ActionFunc {
	return func(c *cli.Context) error {
		if s := stringValue(c, "resolution"); s != "" {
			var err error
			if resolution, err = parseResolution(s); err != nil {
				return err
			}
		}

		conf := PostConfig{
			DryRun:     c.GlobalBool("dry-run"),
			Date:       parseStartDate(stringValue(c, "date")),
			Resolution: resolution,
			Path:       c.GlobalString("path"),
		}
		if c.Bool("debug") {
			conf.infFn = info
			conf.errFn = errFn
		}

		scopes := stringSliceValues(c, "scope")
		types := stringSliceValues(c, "type")
		instances := stringSliceValues(c, "instance")

		if !conf.DryRun {
			creds, err := post.LoadCredentials(DataPath())
			if err != nil {
				return fmt.Errorf("unable to load credentials for the client: %w", err)
			}
			for _, cred := range creds {
				switch cl := cred.(type) {
				case *madon.Client:
					if !typeIsAllowed(types, TypeMastodon) || !shouldPostToInstance(instances, cl.InstanceURL) {
						continue
					}
					conf.PostFns = append(conf.PostFns, post.ToMastodon(cl))
				case *post.APClient:
					if !typeIsAllowed(types, TypeFedBOX, TypeONI) ||
						!shouldPostToInstance(instances, cl.ID.String()) {
						continue
					}
					if cl.Type != "" && !typeIsAllowed(types, cl.Type) {
						continue
					}
					var err error

					ctx := context.WithValue(context.Background(), oauth2.HTTPClient, post.GetHTTPClient())
					if cl.Tok == nil || (!cl.Tok.Expiry.IsZero() && time.Until(cl.Tok.Expiry) <= 0) {
						clc := cl.Conf
						cl.Tok, err = clc.PasswordCredentialsToken(ctx, cl.ID.String(), clc.ClientSecret)
						if err != nil {
							return fmt.Errorf("unable to get new token for %s: %w", cl.ID, err)
						}
					}
					conf.PostFns = append(conf.PostFns, post.ToActivityPub(cl))
				}
			}
		}
		if len(conf.PostFns) == 0 {
			conf.PostFns = append(conf.PostFns, post.ToStdout)
		}
		return LoadAndPost(conf, scopes...)
	}
}

func LoadAndPost(c PostConfig, scopes ...string) error {
	if c.Resolution == 0 {
		c.Resolution = ResolutionDay
	}

	valid := plan.GetScopes(scopes)
	if len(valid) == 0 {
		return fmt.Errorf("no valid scopes have been passed: %s", scopes)
	}

	repo := boltdb.New(boltdb.Config{
		Path:  path.Join(c.Path, boltdb.DefaultFile),
		LogFn: boltdb.LoggerFn(c.infFn),
		ErrFn: boltdb.LoggerFn(c.errFn),
	})

	entries, err := repo.LoadEntries(storage.Cursor(c.Date, c.Resolution), valid...)
	if err != nil {
		return fmt.Errorf("unable to load entries from storage: %w", err)
	}
	entries = entriesForPeriod(entries, c.Date, c.Resolution)

	if len(entries) == 0 {
		info("No entries for the period: %s %s", c.Date.Format("Monday, _2 January 2006"), FormatDuration(c.Resolution))
		return nil
	}

	digest := plan.GroupByDay(entries)
	for _, postFn := range c.PostFns {
		if err := postFn(digest); err != nil {
			info("Error trying to post: %s", err)
		}
	}
	return nil
}

// entriesForPeriod keeps the entries starting inside [when, when+resolution).
func entriesForPeriod(entries plan.Entries, when time.Time, resolution time.Duration) plan.Entries {
	period := make(plan.Entries, 0, len(entries))
	for _, e := range entries {
		if e.StartTime.Before(when) || !e.StartTime.Before(when.Add(resolution)) {
			continue
		}
		period = append(period, e)
	}
	return period
}
