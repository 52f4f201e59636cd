package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	ScopeMilestone = "milestone"
	ScopeSprint    = "sprint"
	ScopeTask      = "task"
)

const (
	StreamPM       = "pm"
	StreamBackend  = "backend"
	StreamData     = "data"
	StreamFrontend = "frontend"
	StreamAI       = "ai"
	StreamInfra    = "infra"
)

const (
	StatusTodo    = "todo"
	StatusDoing   = "doing"
	StatusDone    = "done"
	StatusAtRisk  = "at-risk"
	StatusDropped = "dropped"
)

var ValidScopes = []string{ScopeMilestone, ScopeSprint, ScopeTask}

var ValidWorkstreams = []string{StreamPM, StreamBackend, StreamData, StreamFrontend, StreamAI, StreamInfra}

var ValidStatuses = []string{StatusTodo, StatusDoing, StatusDone, StatusAtRisk, StatusDropped}

// Entry is one row of the roadmap documents: a milestone, a sprint or a
// task. Milestones carry a zero Duration, their StartTime is the due date.
type Entry struct {
	ID           string
	Scope        string
	Name         string
	Workstream   string
	Owner        string
	StartTime    time.Time
	Duration     time.Duration
	Status       string
	Percent      int
	DependsOn    []string
	Deliverables []string
	TagNames     []string
	Notes        string
	LastModified time.Time
}

type Entries []Entry

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

func (e Entry) End() time.Time {
	return e.StartTime.Add(e.Duration)
}

func (e Entry) IsValid() bool {
	return e.ID != "" && ValidScope(e.Scope) && !e.StartTime.IsZero()
}

// Closed reports entries that no longer count as planned work.
func (e Entry) Closed() bool {
	return e.Status == StatusDone || e.Status == StatusDropped
}

func (e Entry) Equals(other Entry) bool {
	return e.ID == other.ID &&
		e.Scope == other.Scope &&
		e.Name == other.Name &&
		e.Workstream == other.Workstream &&
		e.Owner == other.Owner &&
		e.StartTime.Equal(other.StartTime) &&
		e.Duration == other.Duration &&
		e.Status == other.Status &&
		e.Percent == other.Percent &&
		stringArrayEqual(e.DependsOn, other.DependsOn) &&
		stringArrayEqual(e.Deliverables, other.Deliverables) &&
		e.Notes == other.Notes
}

func (e Entry) String() string {
	return e.GoString()
}

func (e Entry) GoString() string {
	fmtTime := e.StartTime.Format("2006-01-02")
	stream := ""
	f := "%s%s"
	if len(e.Workstream) > 0 {
		stream = e.Workstream
		f = "%s:%s"
	}
	return fmt.Sprintf("<[%s] "+f+" @ %s//%s %s>", e.ID, e.Scope, stream, fmtTime, e.Duration, e.Status)
}

func (e Entries) String() string {
	return e.GoString()
}

func (e Entries) GoString() string {
	ss := make([]string, len(e))
	for i, en := range e {
		ss[i] = en.GoString()
	}
	return fmt.Sprintf("Entries[%d]:\n\t%s\n", len(e), strings.Join(ss, "\n\t"))
}

func (e Entries) Contains(inc Entry) bool {
	for _, en := range e {
		if en.Equals(inc) {
			return true
		}
	}
	return false
}

func (e Entries) Find(id string) (Entry, bool) {
	for _, en := range e {
		if en.ID == id {
			return en, true
		}
	}
	return Entry{}, false
}

// Scoped filters to the given scopes, keeping document order.
func (e Entries) Scoped(scopes ...string) Entries {
	if len(scopes) == 0 {
		return e
	}
	out := make(Entries, 0, len(e))
	for _, en := range e {
		if inStringList(en.Scope, scopes) {
			out = append(out, en)
		}
	}
	return out
}

// Sort orders entries by start time, with IDs breaking ties.
func (e Entries) Sort() {
	sort.SliceStable(e, func(i, j int) bool {
		if !e[i].StartTime.Equal(e[j].StartTime) {
			return e[i].StartTime.Before(e[j].StartTime)
		}
		return e[i].ID < e[j].ID
	})
}

func inStringList(s string, list []string) bool {
	for _, lss := range list {
		if lss == s {
			return true
		}
	}
	return false
}

func ValidScope(s string) bool {
	return inStringList(s, ValidScopes)
}

func ValidWorkstream(s string) bool {
	return inStringList(s, ValidWorkstreams)
}

func ValidStatus(s string) bool {
	return inStringList(s, ValidStatuses)
}

// GetScopes expands the scope arguments given on the command line: empty,
// "all" and "plan" mean every scope, and plural forms are accepted.
func GetScopes(strs []string) []string {
	scopes := make([]string, 0)
	if len(strs) == 0 {
		return append(scopes, ValidScopes...)
	}
	for _, s := range strs {
		s = strings.ToLower(strings.TrimSpace(s))
		s = strings.TrimSuffix(s, "s")
		if s == "all" || s == "plan" {
			for _, v := range ValidScopes {
				if inStringList(v, scopes) {
					continue
				}
				scopes = append(scopes, v)
			}
			continue
		}
		if !ValidScope(s) || inStringList(s, scopes) {
			continue
		}
		scopes = append(scopes, s)
	}
	return scopes
}

var Colors = map[string]string{
	ScopeMilestone: "tomato",
	ScopeSprint:    "steelblue",
	ScopeTask:      "seagreen",
}

var Labels = map[string]string{
	ScopeMilestone: "Milestones",
	ScopeSprint:    "Sprints",
	ScopeTask:      "Tasks",
	StreamPM:       "Project management",
	StreamBackend:  "Backend",
	StreamData:     "Data engineering",
	StreamFrontend: "Frontend",
	StreamAI:       "AI engineering",
	StreamInfra:    "Infra and analytics",
}
