package storage

import (
	"time"
)

// DateCursor selects a time window out of the store: D is the span loaded
// starting at T. A negative D swaps the bounds so T+D comes before T.
type DateCursor struct {
	T time.Time
	D time.Duration
}

func Cursor(st time.Time, d time.Duration) DateCursor {
	return DateCursor{
		T: st,
		D: d,
	}
}

func (c DateCursor) Min() time.Time {
	if c.D < 0 {
		return c.T.Add(c.D)
	}
	return c.T
}

func (c DateCursor) Max() time.Time {
	if c.D < 0 {
		return c.T
	}
	return c.T.Add(c.D)
}
