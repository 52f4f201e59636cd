package plan

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validPlan builds a small consistent plan: one sprint, a milestone and two
// dependent tasks inside its window.
func validPlan() Entries {
	return Entries{
		{ID: "S1", Scope: ScopeSprint, Name: "Sprint 1", StartTime: date(2026, time.January, 12), Duration: 14 * day, Status: StatusDone},
		{ID: "M1", Scope: ScopeMilestone, Name: "Charter", StartTime: date(2026, time.January, 16), Status: StatusDone},
		{ID: "T1", Scope: ScopeTask, Workstream: "pm", Name: "Charter draft", StartTime: date(2026, time.January, 12), Duration: 5 * day, Status: StatusDone},
		{ID: "T2", Scope: ScopeTask, Workstream: "data", Name: "Source research", StartTime: date(2026, time.January, 14), Duration: 5 * day, Status: StatusDoing, DependsOn: []string{"T1"}},
	}
}

func TestValidateAcceptsConsistentPlan(t *testing.T) {
	require.NoError(t, Validate(validPlan()))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Entries) Entries
		errMsg string
	}{
		{
			name:   "empty plan",
			mutate: func(Entries) Entries { return nil },
			errMsg: "no entries",
		},
		{
			name: "duplicate ID",
			mutate: func(e Entries) Entries {
				dup := e[3]
				dup.Name = "Copy"
				return append(e, dup)
			},
			errMsg: `duplicate ID: "T2"`,
		},
		{
			name: "unknown workstream",
			mutate: func(e Entries) Entries {
				e[3].Workstream = "design"
				return e
			},
			errMsg: `unknown workstream "design"`,
		},
		{
			name: "unknown status",
			mutate: func(e Entries) Entries {
				e[3].Status = "blocked"
				return e
			},
			errMsg: `unknown status "blocked"`,
		},
		{
			name: "missing start",
			mutate: func(e Entries) Entries {
				e[3].StartTime = time.Time{}
				return e
			},
			errMsg: "no start date",
		},
		{
			name: "negative duration",
			mutate: func(e Entries) Entries {
				e[3].Duration = -day
				return e
			},
			errMsg: "negative duration",
		},
		{
			name: "overlapping sprints",
			mutate: func(e Entries) Entries {
				return append(e, Entry{ID: "S2", Scope: ScopeSprint, StartTime: date(2026, time.January, 25), Duration: 14 * day, Status: StatusTodo})
			},
			errMsg: "sprints S1 and S2 overlap",
		},
		{
			name: "outside the sprint window",
			mutate: func(e Entries) Entries {
				return append(e, Entry{ID: "M2", Scope: ScopeMilestone, StartTime: date(2026, time.February, 2), Status: StatusTodo})
			},
			errMsg: "outside the sprint window",
		},
		{
			name: "unknown dependency",
			mutate: func(e Entries) Entries {
				e[3].DependsOn = []string{"T9"}
				return e
			},
			errMsg: `depends on unknown entry "T9"`,
		},
		{
			name: "dependency on a sprint",
			mutate: func(e Entries) Entries {
				e[3].DependsOn = []string{"S1"}
				return e
			},
			errMsg: `depends on sprint "S1"`,
		},
		{
			name: "self dependency",
			mutate: func(e Entries) Entries {
				e[3].DependsOn = []string{"T2"}
				return e
			},
			errMsg: "depends on itself",
		},
		{
			name: "duplicate dependency",
			mutate: func(e Entries) Entries {
				e[3].DependsOn = []string{"T1", "T1"}
				return e
			},
			errMsg: `duplicate dependency on "T1"`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.mutate(validPlan()))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPlan))
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestValidateCycle(t *testing.T) {
	entries := validPlan()
	entries[2].DependsOn = []string{"T2"} // closes T1 -> T2 -> T1

	err := Validate(entries)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
	assert.Contains(t, err.Error(), "T1 -> T2 -> T1")
}

func TestValidateCycleWitnessIsStable(t *testing.T) {
	entries := Entries{
		{ID: "S1", Scope: ScopeSprint, StartTime: date(2026, time.January, 12), Duration: 28 * day, Status: StatusTodo},
		{ID: "TA", Scope: ScopeTask, Workstream: "pm", StartTime: date(2026, time.January, 12), Duration: day, Status: StatusTodo, DependsOn: []string{"TB"}},
		{ID: "TB", Scope: ScopeTask, Workstream: "pm", StartTime: date(2026, time.January, 13), Duration: day, Status: StatusTodo, DependsOn: []string{"TC"}},
		{ID: "TC", Scope: ScopeTask, Workstream: "pm", StartTime: date(2026, time.January, 14), Duration: day, Status: StatusTodo, DependsOn: []string{"TA"}},
	}

	for i := 0; i < 5; i++ {
		err := Validate(entries)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TA -> TB -> TC -> TA", "the witness starts at the smallest ID")
	}
}

func TestPlanError(t *testing.T) {
	err := invalidf("T1: broken")
	assert.Equal(t, "invalid plan: T1: broken", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidPlan))
	assert.False(t, errors.Is(err, ErrCycle))

	var pe *PlanError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "T1: broken", pe.Msg)
}
