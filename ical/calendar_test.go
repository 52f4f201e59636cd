package ical

import (
	"bytes"
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

func feedEntries() plan.Entries {
	return plan.Entries{
		{
			ID:           "M1",
			Scope:        plan.ScopeMilestone,
			Name:         "Charter signed off",
			Owner:        "Will",
			StartTime:    date(2026, time.January, 16),
			Status:       plan.StatusDone,
			Percent:      100,
			Deliverables: []string{"Charter document"},
			LastModified: date(2026, time.January, 10),
		},
		{
			ID:         "T07",
			Scope:      plan.ScopeTask,
			Name:       "Events CRUD API",
			Workstream: "backend",
			Owner:      "Will",
			StartTime:  date(2026, time.February, 9),
			Duration:   5 * 24 * time.Hour,
			Status:     plan.StatusDoing,
			Percent:    60,
			DependsOn:  []string{"T06"},
		},
	}
}

func TestCalendar(t *testing.T) {
	cal := Calendar(plan.ScopeTask, "test", feedEntries())

	assert.Contains(t, cal.PRODID, "test")
	assert.Equal(t, "https://roadmap.locate918.org/task.ics", cal.URL)
	assert.Equal(t, "Locate918 roadmap: Tasks", cal.NAME)
	assert.Equal(t, cal.NAME, cal.X_WR_CALNAME)
	assert.Equal(t, "seagreen", cal.COLOR)
	assert.Equal(t, "UTC", cal.TIMEZONE_ID)
	require.Len(t, cal.VComponent, 2)
}

func TestCalendarEncode(t *testing.T) {
	b := &bytes.Buffer{}
	require.NoError(t, Calendar(plan.ScopeTask, "test", feedEntries()).Encode(b))
	out := b.String()

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "END:VCALENDAR")
	assert.Contains(t, out, "UID:m1@locate918.org")
	assert.Contains(t, out, "UID:t07@locate918.org")
	assert.Contains(t, out, "SUMMARY:Charter signed off")
	assert.Contains(t, out, "SUMMARY:[backend] Events CRUD API", "tasks carry their workstream")
	assert.Contains(t, out, "Owner: Will")
	assert.Contains(t, out, "Status: doing (60%)")
	assert.Contains(t, out, "Depends on: T06")
	assert.Contains(t, out, "Deliverables: Charter document")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
}

func TestCalendarEmpty(t *testing.T) {
	b := &bytes.Buffer{}
	require.NoError(t, Calendar(plan.ScopeSprint, "test", nil).Encode(b))
	out := b.String()

	assert.Contains(t, out, "BEGIN:VCALENDAR", "an empty range still yields a valid calendar")
	assert.NotContains(t, out, "BEGIN:VEVENT")
	assert.Contains(t, out, "steelblue")
}

func TestEventDescription(t *testing.T) {
	e := feedEntries()[1]
	desc := eventDescription(e)
	assert.Equal(t, `Owner: Will\nStatus: doing (60%)\nDepends on: T06`, desc)

	bare := plan.Entry{ID: "T1", Scope: plan.ScopeTask, Status: plan.StatusTodo}
	assert.Equal(t, "Status: todo", eventDescription(bare))
}
