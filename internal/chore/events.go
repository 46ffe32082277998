package chore

// Event kinds emitted by lifecycle operations. Activity and ledger rows are
// written inside the operation's transaction; these events are returned to
// the caller after commit for live sync and notifications.
const (
	EventChoreCreated   = "chore.created"
	EventChoreUpdated   = "chore.updated"
	EventChoreDisabled  = "chore.disabled"
	EventChoreEnabled   = "chore.enabled"
	EventChoreDeleted   = "chore.deleted"
	EventChoreCompleted = "chore.completed"
	EventChoreApproved  = "chore.approved"
	EventChoreRejected  = "chore.rejected"
	EventRewardGranted  = "reward.granted"
)

// Event describes one committed side effect of a lifecycle operation.
type Event struct {
	Kind         string `json:"kind"`
	FamilyID     int64  `json:"family_id"`
	ActorID      int64  `json:"actor_id"`
	ChildID      int64  `json:"child_id,omitempty"`
	TemplateID   int64  `json:"template_id"`
	AssignmentID int64  `json:"assignment_id,omitempty"`
	Title        string `json:"title,omitempty"`
	Amount       int    `json:"amount,omitempty"`
}
