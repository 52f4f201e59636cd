package post

import (
	"bytes"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/McKael/madon"

	"github.com/locate918/roadmap/plan"
)

const maxPostSize = 500
const mastodonTitleTpl = `Locate918 roadmap for {{ .Format "Monday, 02 Jan 2006" -}}`
const mastodonContentTpl = `{{- range $e := .Entries }}
{{ $e | line }} {{ renderTags $e.TagNames "#" }}
{{ end }}
#{{ .Date.Month.String | lower }} #locate918 #capstone`

var badStrings = []string{"​"}

func removeStrings(s string, replace ...string) string {
	for _, r := range replace {
		s = strings.ReplaceAll(s, r, "")
	}
	return s
}

// line renders one entry the way it reads in a digest post.
func line(e plan.Entry) string {
	b := strings.Builder{}
	switch e.Scope {
	case plan.ScopeMilestone:
		fmt.Fprintf(&b, "%s %s, due %s", e.ID, e.Name, e.StartTime.Format("Jan _2"))
	case plan.ScopeSprint:
		fmt.Fprintf(&b, "%s, %s to %s", e.Name, e.StartTime.Format("Jan _2"), e.End().AddDate(0, 0, -1).Format("Jan _2"))
	default:
		fmt.Fprintf(&b, "%s %s", e.ID, e.Name)
		if e.Owner != "" {
			fmt.Fprintf(&b, " (%s)", e.Owner)
		}
	}
	if e.Scope != plan.ScopeSprint && e.Status != "" {
		fmt.Fprintf(&b, ": %s", e.Status)
		if e.Status == plan.StatusDoing && e.Percent > 0 {
			fmt.Fprintf(&b, " %d%%", e.Percent)
		}
	}
	return removeStrings(b.String(), badStrings...)
}

var contTemplate = template.Must(template.New("daily-digest").
	Funcs(template.FuncMap{
		"line":       line,
		"lower":      strings.ToLower,
		"renderTags": renderTagsText,
	}).Parse(mastodonContentTpl))

var titleTemplate = template.Must(template.New("daily-digest-title").Parse(mastodonTitleTpl))

type postContent struct {
	Date    time.Time
	Entries plan.Entries
}

func stringsContain(sl []string, v string) bool {
	for _, vs := range sl {
		if vs == v {
			return true
		}
	}
	return false
}

func uniqueValues[T comparable](sl []T, containsFn func(sl []T, u T) bool) []T {
	newSl := make([]T, 0, len(sl))
	for _, v := range sl {
		if !containsFn(newSl, v) {
			newSl = append(newSl, v)
		}
	}
	return newSl
}

type postModel struct {
	title, content string
}

// sortedDays returns the digest days in chronological order, so multi day
// windows post oldest first.
func sortedDays(group map[time.Time]plan.Entries) []time.Time {
	days := make([]time.Time, 0, len(group))
	for d := range group {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func renderTitle(gd time.Time) (string, error) {
	title := bytes.NewBuffer(nil)
	if err := titleTemplate.Execute(title, gd); err != nil {
		return "", fmt.Errorf("unable to build post title: %w", err)
	}
	return title.String(), nil
}

func renderPosts(d time.Time, entries plan.Entries) (string, error) {
	model := postContent{Date: d, Entries: entries}
	contBuff := bytes.NewBuffer(nil)
	if err := contTemplate.Execute(contBuff, model); err != nil {
		infFn("unable to render post %s", err)
		return "", err
	}
	return contBuff.String(), nil
}

const unlisted = "unlisted"

type PosterFn func(groups map[time.Time]plan.Entries) error

func ToMastodon(client *madon.Client) PosterFn {
	if client == nil {
		return ToStdout
	}
	return func(group map[time.Time]plan.Entries) error {
		var inReplyTo int64 = 0
		posts := make([]postModel, 0)

		for _, d := range sortedDays(group) {
			entries := group[d]
			title, err := renderTitle(d)
			if err != nil {
				errFn("Unable to render title: %s", err)
			}

			cleaveFn := func(d time.Time, content *string) func(entries []plan.Entry) bool {
				return func(entries []plan.Entry) bool {
					var err error
					*content, err = renderPosts(d, entries)
					if err != nil {
						return false
					}
					return len(*content) < maxPostSize
				}
			}

			for {
				var content string
				_, entries = cleaveSlice(entries, cleaveFn(d, &content))

				posts = append(posts, postModel{title: title, content: content})
				if entries == nil {
					break
				}
			}
		}

		for i, model := range posts {
			if len(posts) > 1 {
				model.title = fmt.Sprintf("%s: %d/%d", model.title, i+1, len(posts))
			}
			if inReplyTo > 0 {
				time.Sleep(500 * time.Millisecond)
			}
			s, err := client.PostStatus(model.content, inReplyTo, nil, len(model.title) > 0, model.title, unlisted)
			if err != nil {
				return fmt.Errorf("%s: %w", client.InstanceURL, err)
			}
			// Follow-up chunks thread under the first one.
			inReplyTo = s.ID
			infFn("Post at: %s", s.URI)
		}

		return nil
	}
}

// InstanceName reduces an instance URL or host to the file name the
// credentials are stored under.
func InstanceName(inst string) string {
	if u, err := url.ParseRequestURI(inst); err == nil && u.Host != "" {
		inst = u.Host
	}
	return url.PathEscape(filepath.Clean(filepath.Base(inst)))
}

func splitSlice[T any](sl []T, size int) [][]T {
	result := make([][]T, 0)
	if len(sl) <= size {
		result = append(result, sl)
		return result
	}
	if size == 0 {
		size = 1
	}
	cur := 0
	end := size
	for {
		if cur+size < len(sl) {
			end = cur + size
		} else {
			end = len(sl)
		}
		chunk := sl[cur:end]
		cur += size
		result = append(result, chunk)
		if cur >= len(sl) {
			break
		}
	}
	return result
}

func cleaveSlice[T any](incoming []T, checkFn func([]T) bool) ([]T, []T) {
	if checkFn(incoming) {
		return incoming, nil
	}

	var remainder []T
	for {
		cleaveLen := len(incoming) / 2
		halves := splitSlice[T](incoming, cleaveLen)
		if len(halves) >= 2 {
			for _, h := range halves[1:] {
				remainder = append(remainder, h...)
			}
		}
		if checkFn(halves[0]) {
			return halves[0], remainder
		}
		if len(halves[0]) == len(incoming) {
			break
		}
		incoming = halves[0]
	}
	return incoming, nil
}
