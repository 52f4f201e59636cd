package ical

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mariusor/render"

	"github.com/locate918/roadmap/plan"
	"github.com/locate918/roadmap/storage"
	"github.com/locate918/roadmap/storage/boltdb"
)

// DefaultTemplateDir is where the HTML index templates are looked up
// when the server is not told otherwise.
const DefaultTemplateDir = "templates"

type cal struct {
	version string
	path    string
	ren     *render.Render
}

// NewHandler returns the handler serving roadmap feeds out of the
// database at path. The HTML index renders through the templates
// directory when it exists, and falls back to a plain text listing.
func NewHandler(path, templates, version string) cal {
	c := cal{
		version: version,
		path:    path,
	}
	if templates == "" {
		templates = DefaultTemplateDir
	}
	if _, err := os.Stat(templates); err == nil {
		c.ren = render.New(render.Options{
			Directory:  templates,
			Layout:     "main",
			Extensions: []string{".html"},
			Funcs: []template.FuncMap{{
				"lower": strings.ToLower,
			}},
			Delims:                    render.Delims{Left: "{{", Right: "}}"},
			Charset:                   "UTF-8",
			DisableCharset:            false,
			HTMLContentType:           "text/html",
			DisableHTTPErrorRendering: true,
		})
	}
	return c
}

// wide enough to cover any year the plan documents can touch
var fullRange = storage.Cursor(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), 20*365*24*time.Hour)

func yearRange(year int) storage.DateCursor {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return storage.Cursor(start, start.AddDate(1, 0, 0).Sub(start)-time.Second)
}

func (c cal) feed(w http.ResponseWriter, r *http.Request) {
	// /{scope}.ics or /{scope}/{year}.ics
	typ := strings.ToLower(chi.URLParam(r, "scope"))

	scopes := plan.GetScopes([]string{typ})
	if typ == "" || len(scopes) == 0 {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "Invalid scope %s", typ)
		return
	}

	cursor := fullRange
	if yearURL := chi.URLParam(r, "year"); len(yearURL) > 0 {
		year, err := strconv.Atoi(yearURL)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, "Invalid year %s", yearURL)
			return
		}
		cursor = yearRange(year)
	}

	st := boltdb.New(boltdb.Config{Path: c.path})
	entries, err := st.LoadEntries(cursor, scopes...)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "%s", err)
		return
	}

	b := &bytes.Buffer{}
	if err := Calendar(scopes[0], c.version, entries).Encode(b); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "%s", err)
		return
	}
	body := b.Bytes()

	sum := sha1.Sum(body)
	etag := fmt.Sprintf(`W/"%x"`, sum[:8])
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Write(body)
}

type feedLink struct {
	Label string
	Href  string
}

type indexData struct {
	Title       string
	Description string
	Feeds       []feedLink
}

func (c cal) index(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Title:       "Locate918 roadmap",
		Description: "Calendar feeds for the Locate918 event discovery capstone. Subscribe to a scope to follow the plan.",
		Feeds:       c.feedLinks(),
	}

	if c.ren != nil {
		if err := c.ren.HTML(w, http.StatusOK, "index", data); err == nil {
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s\n\n", data.Title)
	for _, f := range data.Feeds {
		fmt.Fprintf(w, "%s\t%s\n", f.Label, f.Href)
	}
}

// feedLinks lists one feed per scope, plus per year feeds for the years
// the stored plan actually covers.
func (c cal) feedLinks() []feedLink {
	links := make([]feedLink, 0, len(plan.ValidScopes))
	for _, scope := range plan.ValidScopes {
		links = append(links, feedLink{
			Label: plan.Labels[scope],
			Href:  fmt.Sprintf("/%s.ics", scope),
		})
	}

	st := boltdb.New(boltdb.Config{Path: c.path})
	entries, err := st.LoadEntries(fullRange, plan.ValidScopes...)
	if err != nil {
		return links
	}
	years := make([]int, 0)
	for _, e := range entries {
		y := e.StartTime.Year()
		found := false
		for _, known := range years {
			if known == y {
				found = true
				break
			}
		}
		if !found {
			years = append(years, y)
		}
	}
	for _, y := range years {
		for _, scope := range plan.ValidScopes {
			links = append(links, feedLink{
				Label: fmt.Sprintf("%s %d", plan.Labels[scope], y),
				Href:  fmt.Sprintf("/%s/%d.ics", scope, y),
			})
		}
	}
	return links
}
