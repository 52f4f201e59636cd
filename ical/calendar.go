package ical

import (
	"fmt"
	"strings"
	"time"

	"github.com/soh335/ical"

	"github.com/locate918/roadmap/plan"
)

const (
	feedDomain = "locate918.org"
	feedURL    = "https://roadmap.locate918.org"
)

// Calendar builds the VCALENDAR feed of one scope from the given entries.
// Milestones come out as all day events on their due date, sprints and
// tasks span their full date range.
func Calendar(scope, version string, entries plan.Entries) *ical.VCalendar {
	cal := ical.NewBasicVCalendar()
	cal.PRODID = fmt.Sprintf("-//LOCATE918//ROADMAP-CAL//EN/%s", version)

	cal.VERSION = "2.0"
	cal.URL = fmt.Sprintf("%s/%s.ics", feedURL, scope)

	name := "Locate918 roadmap"
	description := "Planning calendar for the Locate918 event discovery capstone"
	if label, ok := plan.Labels[scope]; ok {
		name = fmt.Sprintf("%s: %s", name, label)
		description = fmt.Sprintf("Locate918 roadmap, %s of the event discovery capstone", strings.ToLower(label))
	}
	cal.NAME = name
	cal.X_WR_CALNAME = name
	cal.DESCRIPTION = description
	cal.X_WR_CALDESC = description

	tz := time.UTC.String()
	if len(entries) > 0 {
		tz = entries[0].StartTime.Location().String()
	}
	cal.TIMEZONE_ID = tz
	cal.X_WR_TIMEZONE = tz

	cal.REFRESH_INTERVAL = "P1D"
	cal.X_PUBLISHED_TTL = "P1D"

	if col, ok := plan.Colors[scope]; ok {
		cal.COLOR = col
	}
	cal.CALSCALE = "GREGORIAN"
	cal.METHOD = "PUBLISH"
	for _, e := range entries {
		summary := e.Name
		if e.Scope == plan.ScopeTask && e.Workstream != "" {
			summary = fmt.Sprintf("[%s] %s", e.Workstream, e.Name)
		}

		end := e.End()
		allDay := e.Scope == plan.ScopeMilestone || e.Duration >= 24*time.Hour
		if allDay && !end.After(e.StartTime) {
			end = e.StartTime.Add(24 * time.Hour)
		}
		stamp := e.LastModified
		if stamp.IsZero() {
			stamp = e.StartTime
		}

		ev := &ical.VEvent{
			UID:         fmt.Sprintf("%s@%s", strings.ToLower(e.ID), feedDomain),
			DTSTAMP:     stamp,
			DTSTART:     e.StartTime,
			DTEND:       end,
			SUMMARY:     summary,
			DESCRIPTION: eventDescription(e),
			TZID:        tz,
			AllDay:      allDay,
		}
		cal.VComponent = append(cal.VComponent, ev)
	}
	return cal
}

// eventDescription flattens the entry details onto escaped lines, the way
// RFC 5545 wants multi line DESCRIPTION values.
func eventDescription(e plan.Entry) string {
	pieces := make([]string, 0, 5)
	if e.Owner != "" {
		pieces = append(pieces, fmt.Sprintf("Owner: %s", e.Owner))
	}
	status := e.Status
	if e.Status == plan.StatusDoing && e.Percent > 0 {
		status = fmt.Sprintf("%s (%d%%)", e.Status, e.Percent)
	}
	if status != "" {
		pieces = append(pieces, fmt.Sprintf("Status: %s", status))
	}
	if len(e.DependsOn) > 0 {
		pieces = append(pieces, fmt.Sprintf("Depends on: %s", strings.Join(e.DependsOn, ", ")))
	}
	if len(e.Deliverables) > 0 {
		pieces = append(pieces, fmt.Sprintf("Deliverables: %s", strings.Join(e.Deliverables, "; ")))
	}
	if e.Notes != "" {
		pieces = append(pieces, e.Notes)
	}
	return strings.Join(pieces, "\\n")
}
