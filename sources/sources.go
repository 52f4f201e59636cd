package sources

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	KindVenue    = "venue"
	KindPlatform = "platform"
	KindCity     = "city"
	KindCampus   = "campus"
	KindMedia    = "media"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

const (
	StatusActive    = "active"
	StatusCandidate = "candidate"
	StatusBlocked   = "blocked"
	StatusRetired   = "retired"
)

var ValidKinds = []string{KindVenue, KindPlatform, KindCity, KindCampus, KindMedia}

var ValidPriorities = []string{PriorityHigh, PriorityMedium, PriorityLow}

var ValidStatuses = []string{StatusActive, StatusCandidate, StatusBlocked, StatusRetired}

var Labels = map[string]string{
	KindVenue:    "Venues",
	KindPlatform: "Event platforms",
	KindCity:     "City calendars",
	KindCampus:   "Campus athletics",
	KindMedia:    "Local media listings",
}

// Source is one row of the catalog document: a website the aggregator might
// eventually collect events from. The catalog is a bookmark list, so a
// Source carries curation metadata only, never event data.
type Source struct {
	Name        string
	URL         string
	Kind        string
	Areas       []string
	Categories  []string
	Capacity    int
	Priority    string
	Status      string
	Notes       string
	LastChecked time.Time
}

type Catalog []Source

// Host returns the lowercased hostname of a URL with any leading "www."
// stripped. It is the catalog dedupe and storage key.
func Host(rawurl string) string {
	u, err := url.Parse(strings.TrimSpace(rawurl))
	if err != nil {
		return ""
	}
	h := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(h, "www.")
}

func (s Source) Host() string {
	return Host(s.URL)
}

func (s Source) IsValid() bool {
	return s.Name != "" && s.Host() != "" && ValidKind(s.Kind)
}

func (s Source) Equals(other Source) bool {
	return s.Name == other.Name &&
		s.URL == other.URL &&
		s.Kind == other.Kind &&
		s.Capacity == other.Capacity &&
		s.Priority == other.Priority &&
		s.Status == other.Status &&
		s.Notes == other.Notes &&
		stringArrayEqual(s.Areas, other.Areas) &&
		stringArrayEqual(s.Categories, other.Categories)
}

func (s Source) String() string {
	return s.GoString()
}

func (s Source) GoString() string {
	return fmt.Sprintf("<[%s] %s:%s %s %s>", s.Host(), s.Kind, s.Priority, s.Name, s.Status)
}

func (c Catalog) Contains(inc Source) bool {
	for _, s := range c {
		if s.Equals(inc) {
			return true
		}
	}
	return false
}

func (c Catalog) Find(host string) (Source, bool) {
	for _, s := range c {
		if s.Host() == host {
			return s, true
		}
	}
	return Source{}, false
}

func (c Catalog) Hosts() []string {
	hosts := make([]string, 0, len(c))
	for _, s := range c {
		if h := s.Host(); h != "" && !inStringList(h, hosts) {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// Filter keeps the sources matching all the non-empty argument lists.
func (c Catalog) Filter(kinds, priorities, statuses []string) Catalog {
	out := make(Catalog, 0, len(c))
	for _, s := range c {
		if len(kinds) > 0 && !inStringList(s.Kind, kinds) {
			continue
		}
		if len(priorities) > 0 && !inStringList(s.Priority, priorities) {
			continue
		}
		if len(statuses) > 0 && !inStringList(s.Status, statuses) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Sort orders the catalog by kind in ValidKinds order, then by name.
func (c Catalog) Sort() {
	kindRank := func(k string) int {
		for i, v := range ValidKinds {
			if v == k {
				return i
			}
		}
		return len(ValidKinds)
	}
	sort.SliceStable(c, func(i, j int) bool {
		if ri, rj := kindRank(c[i].Kind), kindRank(c[j].Kind); ri != rj {
			return ri < rj
		}
		return c[i].Name < c[j].Name
	})
}

func stringArrayEqual(a1, a2 []string) bool {
	if len(a1) != len(a2) {
		return false
	}
	s1 := append([]string(nil), a1...)
	s2 := append([]string(nil), a2...)
	sort.Strings(s1)
	sort.Strings(s2)
	for k, v := range s1 {
		if v != s2[k] {
			return false
		}
	}
	return true
}

func inStringList(s string, list []string) bool {
	for _, lss := range list {
		if lss == s {
			return true
		}
	}
	return false
}

func ValidKind(s string) bool {
	return inStringList(s, ValidKinds)
}

func ValidPriority(s string) bool {
	return inStringList(s, ValidPriorities)
}

func ValidStatus(s string) bool {
	return inStringList(s, ValidStatuses)
}

// GetKinds expands the kind arguments given on the command line: empty,
// "all" and "catalog" mean every kind, and plural forms are accepted.
func GetKinds(strs []string) []string {
	kinds := make([]string, 0)
	if len(strs) == 0 {
		return append(kinds, ValidKinds...)
	}
	for _, s := range strs {
		s = strings.ToLower(strings.TrimSpace(s))
		// "campus" ends in s, only strip plurals off unknown names
		if !ValidKind(s) {
			s = strings.TrimSuffix(s, "s")
		}
		if s == "all" || s == "catalog" {
			for _, v := range ValidKinds {
				if inStringList(v, kinds) {
					continue
				}
				kinds = append(kinds, v)
			}
			continue
		}
		if !ValidKind(s) || inStringList(s, kinds) {
			continue
		}
		kinds = append(kinds, s)
	}
	return kinds
}
