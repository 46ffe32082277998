package chore

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mhutchens/chorebank/internal/model"
	"github.com/mhutchens/chorebank/internal/store"
)

// Lifecycle orchestrates the assignment state machine. Every mutation runs
// inside a single transaction spanning the record change and the activity and
// ledger rows it implies; the returned events describe what was committed and
// feed the websocket hub and push notifier after the fact.
type Lifecycle struct {
	db          *sql.DB
	templates   *store.TemplateStore
	assignments *store.AssignmentStore
	ledger      *store.LedgerStore
	activity    *store.ActivityStore
	guard       *Guard
	logger      *slog.Logger

	// Now is the clock used for completion, approval, and cooldown checks.
	// Tests pin it.
	Now func() time.Time
}

func NewLifecycle(db *sql.DB, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		db:          db,
		templates:   store.NewTemplateStore(db),
		assignments: store.NewAssignmentStore(db),
		ledger:      store.NewLedgerStore(db),
		activity:    store.NewActivityStore(db),
		guard:       NewGuard(store.NewUserStore(db)),
		logger:      logger,
		Now:         time.Now,
	}
}

// CreateTemplate validates the config, resolves every assignee against the
// caller's family, and persists the template with its initial assignment
// records: one for single mode, one per assignee for multi, none for pool.
func (l *Lifecycle) CreateTemplate(callerID int64, cfg TemplateConfig) (*model.ChoreTemplate, []model.Assignment, []Event, error) {
	parent, err := l.guard.RequireParent(callerID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	for _, assigneeID := range cfg.AssigneeIDs {
		if _, err := l.guard.RequireChildInFamily(parent.FamilyID, assigneeID); err != nil {
			return nil, nil, nil, err
		}
	}

	tx, err := l.db.Begin()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	tmpl, err := l.templates.WithTx(tx).Create(
		parent.FamilyID, parent.ID,
		strings.TrimSpace(cfg.Title), strings.TrimSpace(cfg.Description),
		cfg.RewardKind, cfg.RewardAmount, cfg.RewardMin, cfg.RewardMax,
		cfg.Recurring, cfg.CooldownDays, cfg.Mode,
	)
	if err != nil {
		return nil, nil, nil, err
	}

	assignmentsTx := l.assignments.WithTx(tx)
	var records []model.Assignment
	for _, assigneeID := range cfg.AssigneeIDs {
		rec, err := assignmentsTx.Create(tmpl.ID, assigneeID)
		if err != nil {
			return nil, nil, nil, err
		}
		records = append(records, *rec)
	}

	_, err = l.activity.WithTx(tx).Record(EventChoreCreated, parent.ID, parent.ID, &tmpl.ID, map[string]any{
		"title": tmpl.Title,
		"mode":  tmpl.Mode,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, nil, fmt.Errorf("commit tx: %w", err)
	}

	events := []Event{{
		Kind:       EventChoreCreated,
		FamilyID:   parent.FamilyID,
		ActorID:    parent.ID,
		TemplateID: tmpl.ID,
		Title:      tmpl.Title,
	}}
	return tmpl, records, events, nil
}

// Complete marks the caller's assignment as done and pending approval. For
// pool templates the first completion claims the chore; the claim is an
// atomic insert, so one of two racing children gets a conflict. A recurring
// record whose prior cycle was approved is implicitly reset once its cooldown
// has elapsed.
func (l *Lifecycle) Complete(callerID, templateID int64) (*model.Assignment, []Event, error) {
	child, err := l.guard.RequireChild(callerID)
	if err != nil {
		return nil, nil, err
	}

	tmpl, err := l.templates.GetByID(templateID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireFamilyTemplate(tmpl, child.FamilyID); err != nil {
		return nil, nil, err
	}
	if tmpl.Disabled {
		return nil, nil, &StateError{Msg: "chore is disabled"}
	}

	now := l.Now()

	tx, err := l.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	assignmentsTx := l.assignments.WithTx(tx)

	var rec *model.Assignment
	switch tmpl.Mode {
	case model.ModeSingle, model.ModeMulti:
		rec, err = l.resolveAssigned(assignmentsTx, tmpl, child)
	case model.ModePool:
		rec, err = l.resolvePool(assignmentsTx, tmpl, child, now)
	default:
		err = validationf("unknown assignment mode %q", tmpl.Mode)
	}
	if err != nil {
		return nil, nil, err
	}

	if rec.Completed {
		if !rec.Approved {
			return nil, nil, &StateError{
				Msg:   "chore is already completed and waiting for approval",
				State: StatePendingApproval,
			}
		}
		if !tmpl.Recurring {
			return nil, nil, &StateError{Msg: "chore is already approved", State: StateApproved}
		}
		if !cooldownOver(rec, tmpl, now) {
			days := DaysUntilAvailable(rec, tmpl, now)
			return nil, nil, &StateError{
				Msg:                fmt.Sprintf("chore is cooling down for another %d day(s)", days),
				State:              StateApproved,
				DaysUntilAvailable: days,
			}
		}
		// Cooldown elapsed: begin a fresh cycle. The approval timestamp is
		// kept so the next cooldown can be computed from it.
		if err := assignmentsTx.ResetCycle(rec.ID); err != nil {
			return nil, nil, err
		}
	}

	if err := assignmentsTx.MarkCompleted(rec.ID, now); err != nil {
		return nil, nil, err
	}

	_, err = l.activity.WithTx(tx).Record(EventChoreCompleted, child.ID, child.ID, &tmpl.ID, map[string]any{
		"title": tmpl.Title,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}

	updated, err := l.assignments.GetByID(rec.ID)
	if err != nil {
		return nil, nil, err
	}

	events := []Event{{
		Kind:         EventChoreCompleted,
		FamilyID:     child.FamilyID,
		ActorID:      child.ID,
		ChildID:      child.ID,
		TemplateID:   tmpl.ID,
		AssignmentID: rec.ID,
		Title:        tmpl.Title,
	}}
	return updated, events, nil
}

func (l *Lifecycle) resolveAssigned(assignments *store.AssignmentStore, tmpl *model.ChoreTemplate, child *model.User) (*model.Assignment, error) {
	rec, err := assignments.GetByTemplateAndAssignee(tmpl.ID, child.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &AuthorizationError{Msg: "you are not assigned to this chore"}
	}
	return rec, nil
}

func (l *Lifecycle) resolvePool(assignments *store.AssignmentStore, tmpl *model.ChoreTemplate, child *model.User, now time.Time) (*model.Assignment, error) {
	rec, err := assignments.GetByTemplateAndAssignee(tmpl.ID, child.ID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		// Re-entering after an approved cycle still requires the slot to be
		// free: someone else may hold an open cycle meanwhile.
		if rec.Approved {
			holder, err := assignments.OpenCycleHolder(tmpl.ID)
			if err != nil {
				return nil, err
			}
			if holder != nil && holder.AssigneeID != child.ID {
				return nil, &ConflictError{Msg: "chore is already claimed"}
			}
		}
		return rec, nil
	}

	holder, err := assignments.OpenCycleHolder(tmpl.ID)
	if err != nil {
		return nil, err
	}
	if holder != nil {
		return nil, &ConflictError{Msg: "chore is already claimed"}
	}

	rec, err = assignments.ClaimPool(tmpl.ID, child.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// Lost the race to another child between the holder check and the
		// claim insert.
		return nil, &ConflictError{Msg: "chore is already claimed"}
	}
	return rec, nil
}

// Approve resolves the reward, grants it on the ledger, and marks the record
// approved, all in one transaction. A second approval of the same cycle is an
// error, not a no-op; the guarded record update enforces that even when two
// approvals race.
func (l *Lifecycle) Approve(callerID, assignmentID int64, rewardValue *int) (*model.Assignment, []Event, error) {
	parent, rec, tmpl, err := l.resolveForReview(callerID, assignmentID)
	if err != nil {
		return nil, nil, err
	}

	if !rec.Completed {
		return nil, nil, &StateError{Msg: "chore must be completed before approval", State: RecordState(rec)}
	}
	if rec.Approved {
		return nil, nil, &StateError{Msg: "chore is already approved", State: StateApproved}
	}

	amount, err := ResolveReward(tmpl, rewardValue)
	if err != nil {
		return nil, nil, err
	}

	now := l.Now()

	tx, err := l.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	assignmentsTx := l.assignments.WithTx(tx)
	ok, err := assignmentsTx.Approve(rec.ID, now, amount)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		// The record changed state between the precondition read and this
		// transaction, most likely a concurrent approval.
		return nil, nil, staleReviewError(assignmentsTx, rec.ID)
	}
	if _, err := l.ledger.WithTx(tx).Grant(rec.AssigneeID, amount, tmpl.Title, &tmpl.ID); err != nil {
		return nil, nil, err
	}
	_, err = l.activity.WithTx(tx).Record(EventChoreApproved, parent.ID, rec.AssigneeID, &tmpl.ID, map[string]any{
		"title":  tmpl.Title,
		"amount": amount,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}

	updated, err := l.assignments.GetByID(rec.ID)
	if err != nil {
		return nil, nil, err
	}

	events := []Event{
		{
			Kind:         EventChoreApproved,
			FamilyID:     tmpl.FamilyID,
			ActorID:      parent.ID,
			ChildID:      rec.AssigneeID,
			TemplateID:   tmpl.ID,
			AssignmentID: rec.ID,
			Title:        tmpl.Title,
			Amount:       amount,
		},
		{
			Kind:       EventRewardGranted,
			FamilyID:   tmpl.FamilyID,
			ActorID:    parent.ID,
			ChildID:    rec.AssigneeID,
			TemplateID: tmpl.ID,
			Title:      tmpl.Title,
			Amount:     amount,
		},
	}
	return updated, events, nil
}

// Reject returns a completed record to the available state with a reason.
// The reason stays on the record for audit until the next completion. No
// ledger entry is written.
func (l *Lifecycle) Reject(callerID, assignmentID int64, reason string) (*model.Assignment, []Event, error) {
	parent, rec, tmpl, err := l.resolveForReview(callerID, assignmentID)
	if err != nil {
		return nil, nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, nil, &ValidationError{Msg: "a rejection reason is required"}
	}

	if rec.Approved {
		return nil, nil, &StateError{Msg: "cannot reject an already approved chore", State: StateApproved}
	}
	if !rec.Completed {
		return nil, nil, &StateError{Msg: "chore must be completed before rejection", State: RecordState(rec)}
	}

	tx, err := l.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	assignmentsTx := l.assignments.WithTx(tx)
	ok, err := assignmentsTx.Reject(rec.ID, reason)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, staleReviewError(assignmentsTx, rec.ID)
	}
	_, err = l.activity.WithTx(tx).Record(EventChoreRejected, parent.ID, rec.AssigneeID, &tmpl.ID, map[string]any{
		"title":  tmpl.Title,
		"reason": reason,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}

	updated, err := l.assignments.GetByID(rec.ID)
	if err != nil {
		return nil, nil, err
	}

	events := []Event{{
		Kind:         EventChoreRejected,
		FamilyID:     tmpl.FamilyID,
		ActorID:      parent.ID,
		ChildID:      rec.AssigneeID,
		TemplateID:   tmpl.ID,
		AssignmentID: rec.ID,
		Title:        tmpl.Title,
	}}
	return updated, events, nil
}

// staleReviewError explains a guarded approve/reject update that matched no
// row. The record is re-read inside the caller's transaction so the error
// reflects the state that actually blocked the update.
func staleReviewError(assignments *store.AssignmentStore, id int64) error {
	rec, err := assignments.GetByID(id)
	if err != nil {
		return err
	}
	if rec == nil {
		return &AuthorizationError{Msg: "assignment not found", NotFound: true}
	}
	if rec.Approved {
		return &StateError{Msg: "chore is already approved", State: StateApproved}
	}
	return &StateError{Msg: "chore is no longer waiting for approval", State: RecordState(rec)}
}

// resolveForReview loads the record and template for an approve/reject call
// and checks that the caller is a parent of the template's family.
func (l *Lifecycle) resolveForReview(callerID, assignmentID int64) (*model.User, *model.Assignment, *model.ChoreTemplate, error) {
	parent, err := l.guard.RequireParent(callerID)
	if err != nil {
		return nil, nil, nil, err
	}

	rec, err := l.assignments.GetByID(assignmentID)
	if err != nil {
		return nil, nil, nil, err
	}
	if rec == nil {
		return nil, nil, nil, &AuthorizationError{Msg: "assignment not found", NotFound: true}
	}

	tmpl, err := l.templates.GetByID(rec.TemplateID)
	if err != nil {
		return nil, nil, nil, err
	}
	if tmpl == nil {
		return nil, nil, nil, &AuthorizationError{Msg: "chore not found", NotFound: true}
	}
	if tmpl.FamilyID != parent.FamilyID {
		return nil, nil, nil, &AuthorizationError{Msg: "chore belongs to a different family"}
	}
	return parent, rec, tmpl, nil
}

// UpdateTemplate rewrites the mutable template fields. Once any record on
// the template has completed or been approved, the template is frozen.
func (l *Lifecycle) UpdateTemplate(callerID, templateID int64, upd TemplateUpdate) (*model.ChoreTemplate, []Event, error) {
	parent, err := l.guard.RequireParent(callerID)
	if err != nil {
		return nil, nil, err
	}
	tmpl, err := l.templates.GetByID(templateID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireFamilyTemplate(tmpl, parent.FamilyID); err != nil {
		return nil, nil, err
	}
	if err := upd.Validate(); err != nil {
		return nil, nil, err
	}

	settled, err := l.assignments.CountSettledByTemplate(tmpl.ID)
	if err != nil {
		return nil, nil, err
	}
	if settled > 0 {
		return nil, nil, &StateError{Msg: "chore has completed cycles and can no longer be edited"}
	}

	tx, err := l.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	updated, err := l.templates.WithTx(tx).Update(
		tmpl.ID,
		strings.TrimSpace(upd.Title), strings.TrimSpace(upd.Description),
		upd.RewardKind, upd.RewardAmount, upd.RewardMin, upd.RewardMax,
		upd.Recurring, upd.CooldownDays,
	)
	if err != nil {
		return nil, nil, err
	}
	_, err = l.activity.WithTx(tx).Record(EventChoreUpdated, parent.ID, parent.ID, &tmpl.ID, map[string]any{
		"title": updated.Title,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}

	events := []Event{{
		Kind:       EventChoreUpdated,
		FamilyID:   parent.FamilyID,
		ActorID:    parent.ID,
		TemplateID: tmpl.ID,
		Title:      updated.Title,
	}}
	return updated, events, nil
}

// SetDisabled soft-deletes (or restores) a template. Disabled templates
// reject completions and drop out of the available listings.
func (l *Lifecycle) SetDisabled(callerID, templateID int64, disabled bool) ([]Event, error) {
	parent, err := l.guard.RequireParent(callerID)
	if err != nil {
		return nil, err
	}
	tmpl, err := l.templates.GetByID(templateID)
	if err != nil {
		return nil, err
	}
	if err := requireFamilyTemplate(tmpl, parent.FamilyID); err != nil {
		return nil, err
	}

	kind := EventChoreDisabled
	if !disabled {
		kind = EventChoreEnabled
	}

	tx, err := l.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := l.templates.WithTx(tx).SetDisabled(tmpl.ID, disabled); err != nil {
		return nil, err
	}
	if _, err := l.activity.WithTx(tx).Record(kind, parent.ID, parent.ID, &tmpl.ID, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	events := []Event{{
		Kind:       kind,
		FamilyID:   parent.FamilyID,
		ActorID:    parent.ID,
		TemplateID: tmpl.ID,
		Title:      tmpl.Title,
	}}
	return events, nil
}

// DeleteTemplate hard-deletes a template. Only its creator may do so; the
// assignment records go with it via the foreign key cascade.
func (l *Lifecycle) DeleteTemplate(callerID, templateID int64) ([]Event, error) {
	parent, err := l.guard.RequireParent(callerID)
	if err != nil {
		return nil, err
	}
	tmpl, err := l.templates.GetByID(templateID)
	if err != nil {
		return nil, err
	}
	if err := requireFamilyTemplate(tmpl, parent.FamilyID); err != nil {
		return nil, err
	}
	if tmpl.CreatedBy != parent.ID {
		return nil, &AuthorizationError{Msg: "only the creator may delete this chore"}
	}

	tx, err := l.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := l.activity.WithTx(tx).Record(EventChoreDeleted, parent.ID, parent.ID, &tmpl.ID, map[string]any{
		"title": tmpl.Title,
	}); err != nil {
		return nil, err
	}
	if err := l.templates.WithTx(tx).Delete(tmpl.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	events := []Event{{
		Kind:       EventChoreDeleted,
		FamilyID:   parent.FamilyID,
		ActorID:    parent.ID,
		TemplateID: tmpl.ID,
		Title:      tmpl.Title,
	}}
	return events, nil
}

// AvailableChore is one chore a child can act on right now: either an
// assigned record ready for a new cycle, or a claimable pool template
// (Record is nil until claimed).
type AvailableChore struct {
	Template model.ChoreTemplate `json:"template"`
	Record   *model.Assignment   `json:"record,omitempty"`
}

// AvailableForChild lists the chores the child can complete now. Assigned
// and pool templates are both filtered through the cooldown policy; a pool
// template in cooldown for one child is still offered to another.
func (l *Lifecycle) AvailableForChild(callerID int64) ([]AvailableChore, error) {
	child, err := l.guard.RequireChild(callerID)
	if err != nil {
		return nil, err
	}

	now := l.Now()
	var out []AvailableChore

	assigned, err := l.assignments.ListAssignedForChild(child.ID)
	if err != nil {
		return nil, err
	}
	for i := range assigned {
		rec := assigned[i].Assignment
		tmpl := assigned[i].Template
		if Available(&rec, &tmpl, now) {
			out = append(out, AvailableChore{Template: tmpl, Record: &rec})
		}
	}

	pools, err := l.templates.ListPoolByFamily(child.FamilyID)
	if err != nil {
		return nil, err
	}
	for i := range pools {
		tmpl := pools[i]
		mine, err := l.assignments.GetByTemplateAndAssignee(tmpl.ID, child.ID)
		if err != nil {
			return nil, err
		}
		holder, err := l.assignments.OpenCycleHolder(tmpl.ID)
		if err != nil {
			return nil, err
		}
		if holder != nil && holder.AssigneeID != child.ID {
			continue // claimed by someone else
		}
		if !Available(mine, &tmpl, now) {
			continue
		}
		out = append(out, AvailableChore{Template: tmpl, Record: mine})
	}

	return out, nil
}

// PendingForParent lists every completed-but-unapproved record in the
// parent's family, oldest completion first.
func (l *Lifecycle) PendingForParent(callerID int64) ([]store.PendingApproval, error) {
	parent, err := l.guard.RequireParent(callerID)
	if err != nil {
		return nil, err
	}
	return l.assignments.ListPendingForFamily(parent.FamilyID)
}
