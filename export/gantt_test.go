package export

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locate918/roadmap/plan"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ganttEntries() plan.Entries {
	day := 24 * time.Hour
	return plan.Entries{
		{ID: "M1", Scope: plan.ScopeMilestone, Name: "Charter signed off", StartTime: date(2026, time.January, 16), Status: plan.StatusDone},
		{ID: "S1", Scope: plan.ScopeSprint, Name: "Sprint 1", StartTime: date(2026, time.January, 12), Duration: 14 * day, Status: plan.StatusDone},
		{ID: "T01", Scope: plan.ScopeTask, Workstream: "pm", Name: "Project charter", StartTime: date(2026, time.January, 12), Duration: 5 * day, Status: plan.StatusDone},
		{ID: "T10", Scope: plan.ScopeTask, Workstream: "data", Name: "Venue scrapers", StartTime: date(2026, time.February, 26), Duration: 9 * day, Status: plan.StatusDoing},
		{ID: "T12", Scope: plan.ScopeTask, Workstream: "ai", Name: "Normalization endpoint", StartTime: date(2026, time.March, 2), Duration: 11 * day, Status: plan.StatusAtRisk},
		{ID: "T18", Scope: plan.ScopeTask, Workstream: "pm", Name: "Hardening", StartTime: date(2026, time.April, 20), Duration: 11 * day, Status: plan.StatusTodo},
		{ID: "T19", Scope: plan.ScopeTask, Workstream: "data", Name: "Facebook spike", StartTime: date(2026, time.March, 9), Duration: 5 * day, Status: plan.StatusDropped},
	}
}

func TestGantt(t *testing.T) {
	out := Gantt("Test roadmap", ganttEntries())

	assert.True(t, strings.HasPrefix(out, "gantt\n    title Test roadmap\n    dateFormat YYYY-MM-DD\n    axisFormat %d %b\n"))

	assert.Contains(t, out, "    section Milestones\n        Charter signed off :milestone, m1, 2026-01-16, 0d\n")
	assert.Contains(t, out, "    section Project management\n        Project charter :done, t01, 2026-01-12, 5d\n        Hardening :t18, 2026-04-20, 11d\n")
	assert.Contains(t, out, "Venue scrapers :active, t10, 2026-02-26, 9d")
	assert.Contains(t, out, "Normalization endpoint :crit, t12, 2026-03-02, 11d")

	assert.NotContains(t, out, "Sprint 1", "sprints do not chart")
	assert.NotContains(t, out, "Facebook spike", "dropped rows do not chart")
	assert.NotContains(t, out, "section Frontend", "empty sections stay out")
}

func TestSpliceGantt(t *testing.T) {
	doc := []byte("# Plan\n\nIntro.\n\n```mermaid\nold body\n```\n\nOutro.\n")

	out, err := SpliceGantt(doc, "gantt\n    title X\n")
	require.NoError(t, err)
	assert.Equal(t, "# Plan\n\nIntro.\n\n```mermaid\ngantt\n    title X\n```\n\nOutro.\n", string(out))
}

func TestSpliceGanttErrors(t *testing.T) {
	_, err := SpliceGantt([]byte("# Plan\n\nNo fence here.\n"), "gantt\n")
	assert.ErrorContains(t, err, "no mermaid fence")

	_, err = SpliceGantt([]byte("```mermaid\nnever closed\n"), "gantt\n")
	assert.ErrorContains(t, err, "unterminated mermaid fence")
}

// The fence in the checked in roadmap is generated; regenerating it from
// the tables must leave the document byte for byte unchanged.
func TestRoadmapFenceIsCurrent(t *testing.T) {
	doc, err := os.ReadFile("../ROADMAP.md")
	require.NoError(t, err)

	entries, err := plan.ParseRoadmap(doc)
	require.NoError(t, err)

	out, err := SpliceGantt(doc, Gantt("Locate918 roadmap", entries))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(doc, out), "run `roadmapctl export --format gantt --refresh` and commit")
}
