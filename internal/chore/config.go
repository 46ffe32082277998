package chore

import (
	"strings"

	"github.com/mhutchens/chorebank/internal/model"
)

// TemplateConfig is the closed set of fields a parent supplies when creating
// a chore template. Unknown input is rejected at the HTTP boundary; by the
// time a config reaches the lifecycle it contains exactly these fields.
type TemplateConfig struct {
	Title        string
	Description  string
	RewardKind   string
	RewardAmount int
	RewardMin    int
	RewardMax    int
	Recurring    bool
	CooldownDays int
	Mode         string
	AssigneeIDs  []int64
}

// Validate checks the mode/assignee topology and reward bounds. It does not
// touch storage; assignee existence and family membership are verified by the
// lifecycle against the user store.
func (c *TemplateConfig) Validate() error {
	if err := validateTitle(c.Title); err != nil {
		return err
	}

	switch c.Mode {
	case model.ModeSingle:
		if len(c.AssigneeIDs) != 1 {
			return validationf("single mode requires exactly 1 assignee, got %d", len(c.AssigneeIDs))
		}
	case model.ModeMulti:
		if len(c.AssigneeIDs) < 1 {
			return validationf("multi mode requires at least 1 assignee")
		}
	case model.ModePool:
		if len(c.AssigneeIDs) != 0 {
			return validationf("pool mode requires 0 assignees, got %d", len(c.AssigneeIDs))
		}
	default:
		return validationf("unknown assignment mode %q", c.Mode)
	}

	if dup := duplicateID(c.AssigneeIDs); dup != 0 {
		return validationf("assignee %d listed more than once", dup)
	}

	if err := validateReward(c.RewardKind, c.RewardAmount, c.RewardMin, c.RewardMax); err != nil {
		return err
	}
	return validateCadence(c.Recurring, c.CooldownDays)
}

// TemplateUpdate carries the fields that stay mutable while a template has
// no settled cycles. Mode and assignees are not among them.
type TemplateUpdate struct {
	Title        string
	Description  string
	RewardKind   string
	RewardAmount int
	RewardMin    int
	RewardMax    int
	Recurring    bool
	CooldownDays int
}

func (u *TemplateUpdate) Validate() error {
	if err := validateTitle(u.Title); err != nil {
		return err
	}
	if err := validateReward(u.RewardKind, u.RewardAmount, u.RewardMin, u.RewardMax); err != nil {
		return err
	}
	return validateCadence(u.Recurring, u.CooldownDays)
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return validationf("title is required")
	}
	return nil
}

func validateReward(kind string, amount, min, max int) error {
	switch kind {
	case model.RewardFixed:
		if amount < 0 {
			return validationf("reward amount cannot be negative")
		}
	case model.RewardRange:
		if min < 0 {
			return validationf("reward minimum cannot be negative")
		}
		// min == max == 0 is a permitted zero-reward placeholder.
		if min > max {
			return validationf("reward minimum %d exceeds maximum %d", min, max)
		}
	default:
		return validationf("unknown reward kind %q", kind)
	}
	return nil
}

func validateCadence(recurring bool, cooldownDays int) error {
	if recurring && cooldownDays < 1 {
		return validationf("recurring chores need a cooldown of at least 1 day")
	}
	if !recurring && cooldownDays != 0 {
		return validationf("cooldown days only apply to recurring chores")
	}
	return nil
}

func duplicateID(ids []int64) int64 {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id
		}
		seen[id] = struct{}{}
	}
	return 0
}
