package service

import (
	"time"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
)

// Clock anchors "today" for date windows. The zero value uses time.Now in UTC.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func (c Clock) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Clock) loc() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.UTC
}

func (c Clock) today() time.Time {
	return domain.StartOfDay(c.now(), c.loc())
}

// day normalizes a scheduled date to midnight in the clock's location.
func (c Clock) day(t time.Time) time.Time {
	return domain.DateOf(t, c.loc())
}

type noopRecorder struct{}

func (noopRecorder) PromotionOutcome(string)       {}
func (noopRecorder) InventoryApplied(string, int)  {}
func (noopRecorder) InventoryRestored(string, int) {}
func (noopRecorder) ReminderDispatched(int)        {}
