package chore

import (
	"time"

	"github.com/mhutchens/chorebank/internal/model"
)

const day = 24 * time.Hour

// Available reports whether the assignment can begin a new completion cycle
// at now. A nil record means an unclaimed pool slot, which is always
// available. Cooldown is per-record: a pool template in cooldown for one
// child is still claimable by another.
func Available(a *model.Assignment, t *model.ChoreTemplate, now time.Time) bool {
	if a == nil {
		return true
	}
	if a.Completed && !a.Approved {
		return false // pending approval
	}
	if a.Approved && !t.Recurring {
		return false // one-off, terminal
	}
	return cooldownOver(a, t, now)
}

func cooldownOver(a *model.Assignment, t *model.ChoreTemplate, now time.Time) bool {
	if !t.Recurring || a.ApprovedAt == nil {
		return true
	}
	return !now.Before(a.ApprovedAt.Add(time.Duration(t.CooldownDays) * day))
}

// DaysUntilAvailable returns the whole days remaining before the record's
// cooldown expires, rounded up and clamped to zero.
func DaysUntilAvailable(a *model.Assignment, t *model.ChoreTemplate, now time.Time) int {
	if a == nil || a.ApprovedAt == nil || !t.Recurring {
		return 0
	}
	remaining := a.ApprovedAt.Add(time.Duration(t.CooldownDays) * day).Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / day)
	if remaining%day != 0 {
		days++
	}
	return days
}
