package model

import "time"

// Assignment modes. The mode governs how many assignment records a template
// has and who may complete them.
const (
	ModeSingle = "single" // exactly one designated assignee
	ModeMulti  = "multi"  // one independent record per designated assignee
	ModePool   = "pool"   // no assignees until a child claims by completing
)

// Reward kinds.
const (
	RewardFixed = "fixed" // the template's amount is granted as-is
	RewardRange = "range" // the parent picks the amount within [min, max] at approval
)

type ChoreTemplate struct {
	ID           int64     `json:"id"`
	FamilyID     int64     `json:"family_id"`
	CreatedBy    int64     `json:"created_by"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	RewardKind   string    `json:"reward_kind"`
	RewardAmount int       `json:"reward_amount"`
	RewardMin    int       `json:"reward_min"`
	RewardMax    int       `json:"reward_max"`
	Recurring    bool      `json:"recurring"`
	CooldownDays int       `json:"cooldown_days"`
	Mode         string    `json:"mode"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Assignment is the per-(template, assignee) record tracking one
// completion/approval cycle. ApprovedAt survives a cycle reset so the next
// cycle's cooldown can be computed from it.
type Assignment struct {
	ID              int64      `json:"id"`
	TemplateID      int64      `json:"template_id"`
	AssigneeID      int64      `json:"assignee_id"`
	Completed       bool       `json:"completed"`
	Approved        bool       `json:"approved"`
	CompletedAt     *time.Time `json:"completed_at"`
	ApprovedAt      *time.Time `json:"approved_at"`
	ApprovedAmount  *int       `json:"approved_amount"`
	RejectionReason *string    `json:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
