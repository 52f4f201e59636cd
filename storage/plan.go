package storage

import (
	"time"

	"github.com/locate918/roadmap/plan"
)

type PlanSaver interface {
	SaveEntries(plan.Entries) error
	SaveEntry(plan.Entry) error
}

type PlanLoader interface {
	LoadEntries(DateCursor, ...string) (plan.Entries, error)
	LoadEntry(scope string, date time.Time, id string) plan.Entry
}
