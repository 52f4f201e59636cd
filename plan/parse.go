package plan

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/locate918/roadmap/internal/md"
)

var statusRx = regexp.MustCompile(`^([a-z-]+)(?:\s*\((\d+)%\))?$`)

// ParseRoadmap reads the milestone, sprint and task tables out of a
// roadmap document. Tables are recognized by the section heading they sit
// under; prose, the gantt fence and anything else in the document is left
// alone.
func ParseRoadmap(data []byte) (Entries, error) {
	entries := make(Entries, 0)
	for _, t := range md.Tables(data) {
		var err error
		switch {
		case strings.EqualFold(t.Section, "Milestones"):
			err = parseMilestones(t, &entries)
		case strings.EqualFold(t.Section, "Sprints"):
			err = parseSprints(t, &entries)
		case strings.EqualFold(t.Section, "Tasks"):
			err = parseTasks(t, &entries)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no schedule tables found")
	}
	return entries, nil
}

// ParseRoadmapFile parses path and stamps every entry with the file's
// modification time.
func ParseRoadmapFile(path string) (Entries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries, err := ParseRoadmap(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	mod := time.Now().UTC()
	if fi, err := os.Stat(path); err == nil {
		mod = fi.ModTime().UTC()
	}
	for i := range entries {
		entries[i].LastModified = mod
	}
	return entries, nil
}

func parseMilestones(t md.Table, entries *Entries) error {
	r, err := newRowReader(t, "ID", "Milestone", "Due", "Owner", "Deliverables", "Status")
	if err != nil {
		return err
	}
	for i, row := range t.Rows {
		id := r.cell(row, "ID")
		if id == "" {
			return fmt.Errorf("milestones table: row %d: empty ID", i+1)
		}
		due, err := parseDate(r.cell(row, "Due"))
		if err != nil {
			return fmt.Errorf("milestone %s: %w", id, err)
		}
		status, percent, err := parseStatus(r.cell(row, "Status"))
		if err != nil {
			return fmt.Errorf("milestone %s: %w", id, err)
		}
		*entries = append(*entries, Entry{
			ID:           id,
			Scope:        ScopeMilestone,
			Name:         r.cell(row, "Milestone"),
			Owner:        r.cell(row, "Owner"),
			StartTime:    due,
			Status:       status,
			Percent:      percent,
			Deliverables: splitList(r.cell(row, "Deliverables")),
			TagNames:     []string{ScopeMilestone},
		})
	}
	return nil
}

func parseSprints(t md.Table, entries *Entries) error {
	r, err := newRowReader(t, "ID", "Sprint", "Start", "End", "Goal", "Status")
	if err != nil {
		return err
	}
	for i, row := range t.Rows {
		id := r.cell(row, "ID")
		if id == "" {
			return fmt.Errorf("sprints table: row %d: empty ID", i+1)
		}
		start, dur, err := parseRange(r.cell(row, "Start"), r.cell(row, "End"))
		if err != nil {
			return fmt.Errorf("sprint %s: %w", id, err)
		}
		status, percent, err := parseStatus(r.cell(row, "Status"))
		if err != nil {
			return fmt.Errorf("sprint %s: %w", id, err)
		}
		*entries = append(*entries, Entry{
			ID:        id,
			Scope:     ScopeSprint,
			Name:      r.cell(row, "Sprint"),
			StartTime: start,
			Duration:  dur,
			Status:    status,
			Percent:   percent,
			Notes:     r.cell(row, "Goal"),
			TagNames:  []string{ScopeSprint},
		})
	}
	return nil
}

func parseTasks(t md.Table, entries *Entries) error {
	r, err := newRowReader(t, "ID", "Task", "Workstream", "Owner", "Start", "End", "Depends on", "Status")
	if err != nil {
		return err
	}
	for i, row := range t.Rows {
		id := r.cell(row, "ID")
		if id == "" {
			return fmt.Errorf("tasks table: row %d: empty ID", i+1)
		}
		start, dur, err := parseRange(r.cell(row, "Start"), r.cell(row, "End"))
		if err != nil {
			return fmt.Errorf("task %s: %w", id, err)
		}
		status, percent, err := parseStatus(r.cell(row, "Status"))
		if err != nil {
			return fmt.Errorf("task %s: %w", id, err)
		}
		stream := strings.ToLower(r.cell(row, "Workstream"))
		*entries = append(*entries, Entry{
			ID:         id,
			Scope:      ScopeTask,
			Name:       r.cell(row, "Task"),
			Workstream: stream,
			Owner:      r.cell(row, "Owner"),
			StartTime:  start,
			Duration:   dur,
			Status:     status,
			Percent:    percent,
			DependsOn:  splitList(r.cell(row, "Depends on")),
			TagNames:   []string{ScopeTask, stream},
		})
	}
	return nil
}

type rowReader struct {
	cols map[string]int
}

func newRowReader(t md.Table, names ...string) (rowReader, error) {
	r := rowReader{cols: make(map[string]int, len(names))}
	for _, n := range names {
		i := t.Col(n)
		if i < 0 {
			return r, fmt.Errorf("%s table: missing %q column", strings.ToLower(t.Section), n)
		}
		r.cols[n] = i
	}
	return r, nil
}

func (r rowReader) cell(row []md.Cell, name string) string {
	i := r.cols[name]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i].Text)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}

// parseRange turns an inclusive start/end pair of dates into a start and a
// duration covering whole days.
func parseRange(startCell, endCell string) (time.Time, time.Duration, error) {
	start, err := parseDate(startCell)
	if err != nil {
		return time.Time{}, 0, err
	}
	end, err := parseDate(endCell)
	if err != nil {
		return time.Time{}, 0, err
	}
	if end.Before(start) {
		return time.Time{}, 0, fmt.Errorf("end %s before start %s", endCell, startCell)
	}
	return start, end.AddDate(0, 0, 1).Sub(start), nil
}

func parseStatus(s string) (string, int, error) {
	m := statusRx.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return "", 0, fmt.Errorf("invalid status %q", s)
	}
	status := m[1]
	percent := 0
	if m[2] != "" {
		percent, _ = strconv.Atoi(m[2])
	}
	if status == StatusDone && percent == 0 {
		percent = 100
	}
	return status, percent, nil
}

func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
