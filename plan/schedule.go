package plan

import (
	"sort"
	"time"
)

// Window returns the earliest start and the latest end over all entries.
func Window(entries Entries) (time.Time, time.Time) {
	var start, end time.Time
	for _, e := range entries {
		if start.IsZero() || e.StartTime.Before(start) {
			start = e.StartTime
		}
		if en := e.End(); end.IsZero() || en.After(end) {
			end = en
		}
	}
	return start, end
}

// SprintAt returns the sprint whose window contains t.
func SprintAt(entries Entries, t time.Time) (Entry, bool) {
	for _, e := range entries.Scoped(ScopeSprint) {
		if !t.Before(e.StartTime) && t.Before(e.End()) {
			return e, true
		}
	}
	return Entry{}, false
}

// Active returns the tasks in flight at t.
func Active(entries Entries, t time.Time) Entries {
	out := make(Entries, 0)
	for _, e := range entries.Scoped(ScopeTask) {
		if e.Closed() {
			continue
		}
		if !t.Before(e.StartTime) && t.Before(e.End()) {
			out = append(out, e)
		}
	}
	out.Sort()
	return out
}

// Upcoming returns milestones due and tasks starting between t and
// t+horizon, soonest first.
func Upcoming(entries Entries, t time.Time, horizon time.Duration) Entries {
	cutoff := t.Add(horizon)
	out := make(Entries, 0)
	for _, e := range entries {
		if e.Scope == ScopeSprint || e.Closed() {
			continue
		}
		if !e.StartTime.Before(t) && e.StartTime.Before(cutoff) {
			out = append(out, e)
		}
	}
	out.Sort()
	return out
}

// Overdue returns milestones and tasks past their end that are still open.
// Due dates are whole days, so a milestone only trips the day after.
func Overdue(entries Entries, t time.Time) Entries {
	out := make(Entries, 0)
	for _, e := range entries {
		if e.Scope == ScopeSprint || e.Closed() {
			continue
		}
		deadline := e.End()
		if e.Scope == ScopeMilestone {
			deadline = deadline.AddDate(0, 0, 1)
		}
		if deadline.Before(t) || deadline.Equal(t) {
			out = append(out, e)
		}
	}
	out.Sort()
	return out
}

// AtRisk returns the entries flagged at-risk in the documents.
func AtRisk(entries Entries) Entries {
	out := make(Entries, 0)
	for _, e := range entries {
		if e.Status == StatusAtRisk {
			out = append(out, e)
		}
	}
	out.Sort()
	return out
}

// Progress counts done against total, leaving out sprints and dropped
// rows. Filter with Scoped first for per-scope numbers.
func Progress(entries Entries) (int, int) {
	done, total := 0, 0
	for _, e := range entries {
		if e.Scope == ScopeSprint || e.Status == StatusDropped {
			continue
		}
		total++
		if e.Status == StatusDone {
			done++
		}
	}
	return done, total
}

// GroupByDay buckets entries under the UTC midnight of their start, the
// shape the posting layer consumes.
func GroupByDay(entries Entries) map[time.Time]Entries {
	grouped := make(map[time.Time]Entries)
	for _, e := range entries {
		day := time.Date(e.StartTime.Year(), e.StartTime.Month(), e.StartTime.Day(), 0, 0, 0, 0, time.UTC)
		grouped[day] = append(grouped[day], e)
	}
	return grouped
}

// CriticalPath returns the longest chain of dependent tasks by duration,
// in execution order, together with its total duration. Dependencies on
// milestones do not add time and are skipped. Ties break on task ID so the
// result is stable.
func CriticalPath(entries Entries) ([]string, time.Duration) {
	tasks := entries.Scoped(ScopeTask)
	if len(tasks) == 0 {
		return nil, 0
	}
	byID := make(map[string]Entry, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	indeg := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		for _, d := range t.DependsOn {
			if _, ok := byID[d]; !ok {
				continue
			}
			dependents[d] = append(dependents[d], t.ID)
			indeg[t.ID]++
		}
	}
	for id := range dependents {
		sort.Strings(dependents[id])
	}

	ready := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if indeg[t.ID] == 0 {
			ready = append(ready, t.ID)
		}
	}
	sort.Strings(ready)

	dist := make(map[string]time.Duration, len(tasks))
	prev := make(map[string]string, len(tasks))
	for _, id := range ready {
		dist[id] = byID[id].Duration
	}

	// Kahn order with a sorted ready list keeps the relaxation stable.
	for len(ready) > 0 {
		u := ready[0]
		ready = ready[1:]
		for _, v := range dependents[u] {
			if cand := dist[u] + byID[v].Duration; cand > dist[v] {
				dist[v] = cand
				prev[v] = u
			}
			indeg[v]--
			if indeg[v] == 0 {
				i := sort.SearchStrings(ready, v)
				ready = append(ready, "")
				copy(ready[i+1:], ready[i:])
				ready[i] = v
			}
		}
	}

	last, best := "", time.Duration(-1)
	ids := make([]string, 0, len(dist))
	for id := range dist {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if dist[id] > best {
			last, best = id, dist[id]
		}
	}
	if last == "" {
		return nil, 0
	}

	path := make([]string, 0)
	for id := last; id != ""; id = prev[id] {
		path = append(path, id)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, best
}
