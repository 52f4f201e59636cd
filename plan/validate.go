package plan

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidPlan = errors.New("invalid plan")
	ErrCycle       = errors.New("dependency cycle")
)

// PlanError wraps deterministic document validation failures.
type PlanError struct {
	Kind error
	Msg  string
}

func (e *PlanError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *PlanError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &PlanError{Kind: ErrInvalidPlan, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	msg := "cycle"
	if len(path) > 0 {
		msg = strings.Join(path, " -> ")
	}
	return &PlanError{Kind: ErrCycle, Msg: msg}
}

// Validate checks parsed documents for the mistakes that actually happen
// when the tables are edited by hand: duplicated IDs, rows outside the
// sprint window, overlapping sprints, and task dependencies that do not
// resolve. It rejects:
//   - duplicate or empty IDs
//   - unknown scopes, workstreams or statuses
//   - zero start dates and negative durations
//   - overlapping sprints
//   - milestones or tasks outside the sprint window
//   - dependencies on unknown entries or on sprints
//   - self-dependencies, duplicate edges and any dependency cycle
func Validate(entries Entries) error {
	if len(entries) == 0 {
		return invalidf("no entries")
	}

	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			return invalidf("entry with empty ID")
		}
		if _, ok := byID[e.ID]; ok {
			return invalidf("duplicate ID: %q", e.ID)
		}
		if !ValidScope(e.Scope) {
			return invalidf("%s: unknown scope %q", e.ID, e.Scope)
		}
		if e.Scope == ScopeTask && !ValidWorkstream(e.Workstream) {
			return invalidf("%s: unknown workstream %q", e.ID, e.Workstream)
		}
		if !ValidStatus(e.Status) {
			return invalidf("%s: unknown status %q", e.ID, e.Status)
		}
		if e.StartTime.IsZero() {
			return invalidf("%s: no start date", e.ID)
		}
		if e.Duration < 0 {
			return invalidf("%s: negative duration", e.ID)
		}
		byID[e.ID] = e
	}

	sprints := append(Entries(nil), entries.Scoped(ScopeSprint)...)
	sprints.Sort()
	for i := 1; i < len(sprints); i++ {
		prev, cur := sprints[i-1], sprints[i]
		if cur.StartTime.Before(prev.End()) {
			return invalidf("sprints %s and %s overlap", prev.ID, cur.ID)
		}
	}
	if len(sprints) > 0 {
		start, end := sprints[0].StartTime, sprints[len(sprints)-1].End()
		for _, e := range entries {
			if e.Scope == ScopeSprint {
				continue
			}
			if e.StartTime.Before(start) || e.End().After(end) {
				return invalidf("%s: outside the sprint window (%s to %s)",
					e.ID, start.Format("2006-01-02"), end.AddDate(0, 0, -1).Format("2006-01-02"))
			}
		}
	}

	type edge struct{ from, to string }
	seen := make(map[edge]struct{})
	adj := make(map[string][]string)
	withDeps := make([]string, 0)
	for _, e := range entries {
		for _, d := range e.DependsOn {
			if d == e.ID {
				return invalidf("%s: depends on itself", e.ID)
			}
			dep, ok := byID[d]
			if !ok {
				return invalidf("%s: depends on unknown entry %q", e.ID, d)
			}
			if dep.Scope == ScopeSprint {
				return invalidf("%s: depends on sprint %q", e.ID, d)
			}
			pair := edge{from: e.ID, to: d}
			if _, dup := seen[pair]; dup {
				return invalidf("%s: duplicate dependency on %q", e.ID, d)
			}
			seen[pair] = struct{}{}
			adj[e.ID] = append(adj[e.ID], d)
		}
		if len(e.DependsOn) > 0 {
			withDeps = append(withDeps, e.ID)
		}
	}
	sort.Strings(withDeps)
	for id := range adj {
		sort.Strings(adj[id])
	}
	if cycle := findCycle(withDeps, adj); len(cycle) > 0 {
		return cycleError(cycle)
	}
	return nil
}

// findCycle runs a deterministic DFS over the dependency edges and returns
// one cycle path as a stable witness, or nil.
func findCycle(ids []string, adj map[string][]string) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(ids))
	parent := make(map[string]string, len(ids))

	var cycle []string
	var dfs func(u string) bool
	dfs = func(u string) bool {
		color[u] = gray
		for _, v := range adj[u] {
			if color[v] == white {
				parent[v] = u
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				nodes := make([]string, 0)
				for x := u; x != v; x = parent[x] {
					nodes = append(nodes, x)
				}
				nodes = append(nodes, v)
				for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
					nodes[i], nodes[j] = nodes[j], nodes[i]
				}
				cycle = append(nodes, v)
				return true
			}
		}
		color[u] = black
		return false
	}
	for _, id := range ids {
		if color[id] == white && dfs(id) {
			break
		}
	}
	return cycle
}
