package chore

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mhutchens/chorebank/internal/database"
	"github.com/mhutchens/chorebank/internal/model"
	"github.com/mhutchens/chorebank/internal/store"
)

type lifecycleFixture struct {
	db        *sql.DB
	lifecycle *Lifecycle
	parent    *model.User
	childA    *model.User
	childB    *model.User
	childC    *model.User
}

func setupLifecycle(t *testing.T) *lifecycleFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	families := store.NewFamilyStore(db)
	users := store.NewUserStore(db)

	family, err := families.Create("Hutchens")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	parent, err := users.Create(family.ID, "Morgan", model.RoleParent)
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	childA, err := users.Create(family.ID, "Avery", model.RoleChild)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	childB, err := users.Create(family.ID, "Blake", model.RoleChild)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	childC, err := users.Create(family.ID, "Casey", model.RoleChild)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &lifecycleFixture{
		db:        db,
		lifecycle: NewLifecycle(db, logger),
		parent:    parent,
		childA:    childA,
		childB:    childB,
		childC:    childC,
	}
}

func (f *lifecycleFixture) fixedChore(t *testing.T, mode string, assignees []int64) *model.ChoreTemplate {
	t.Helper()
	tmpl, _, _, err := f.lifecycle.CreateTemplate(f.parent.ID, TemplateConfig{
		Title:        "Dishes",
		RewardKind:   model.RewardFixed,
		RewardAmount: 10,
		Recurring:    true,
		CooldownDays: 7,
		Mode:         mode,
		AssigneeIDs:  assignees,
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tmpl
}

func TestCreateTemplateSingleMode(t *testing.T) {
	f := setupLifecycle(t)

	tmpl, records, events, err := f.lifecycle.CreateTemplate(f.parent.ID, TemplateConfig{
		Title:        "Take out trash",
		RewardKind:   model.RewardFixed,
		RewardAmount: 5,
		Mode:         model.ModeSingle,
		AssigneeIDs:  []int64{f.childA.ID},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(records) != 1 || records[0].AssigneeID != f.childA.ID {
		t.Fatalf("expected one record for child A, got %+v", records)
	}
	if len(events) != 1 || events[0].Kind != EventChoreCreated {
		t.Errorf("events = %+v, want one chore.created", events)
	}
	if tmpl.CreatedBy != f.parent.ID {
		t.Errorf("created_by = %d, want %d", tmpl.CreatedBy, f.parent.ID)
	}
}

func TestCreateTemplateRejectsChildCaller(t *testing.T) {
	f := setupLifecycle(t)

	_, _, _, err := f.lifecycle.CreateTemplate(f.childA.ID, TemplateConfig{
		Title:       "Sneaky chore",
		RewardKind:  model.RewardFixed,
		Mode:        model.ModePool,
		AssigneeIDs: nil,
	})
	var authz *AuthorizationError
	if !errors.As(err, &authz) {
		t.Fatalf("got %v, want AuthorizationError", err)
	}
}

func TestCreateTemplateRejectsForeignAssignee(t *testing.T) {
	f := setupLifecycle(t)

	families := store.NewFamilyStore(f.db)
	users := store.NewUserStore(f.db)
	other, err := families.Create("Nguyen")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	outsider, err := users.Create(other.ID, "Sam", model.RoleChild)
	if err != nil {
		t.Fatalf("create outsider: %v", err)
	}

	_, _, _, err = f.lifecycle.CreateTemplate(f.parent.ID, TemplateConfig{
		Title:        "Dishes",
		RewardKind:   model.RewardFixed,
		RewardAmount: 5,
		Mode:         model.ModeSingle,
		AssigneeIDs:  []int64{outsider.ID},
	})
	var authz *AuthorizationError
	if !errors.As(err, &authz) {
		t.Fatalf("got %v, want AuthorizationError", err)
	}
}

func TestCompleteApproveGrantsReward(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})

	rec, events, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !rec.Completed || rec.Approved {
		t.Fatalf("record should be pending approval: %+v", rec)
	}
	if len(events) != 1 || events[0].Kind != EventChoreCompleted {
		t.Errorf("events = %+v, want one chore.completed", events)
	}

	approved, events, err := f.lifecycle.Approve(f.parent.ID, rec.ID, nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.Approved || !approved.Completed {
		t.Error("approved implies completed")
	}
	if approved.ApprovedAmount == nil || *approved.ApprovedAmount != 10 {
		t.Errorf("approved amount = %v, want 10", approved.ApprovedAmount)
	}
	if len(events) != 2 {
		t.Fatalf("events = %+v, want approved + reward granted", events)
	}

	balance, err := store.NewLedgerStore(f.db).GetBalance(f.childA.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.Balance != 10 {
		t.Errorf("balance = %d, want 10", balance.Balance)
	}

	activity, err := store.NewActivityStore(f.db).ListByFamily(f.parent.FamilyID, 10)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	// created + completed + approved
	if len(activity) != 3 {
		t.Errorf("activity entries = %d, want 3", len(activity))
	}
}

func TestApproveRequiresCompletion(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})

	rec, err := store.NewAssignmentStore(f.db).GetByTemplateAndAssignee(tmpl.ID, f.childA.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}

	_, _, err = f.lifecycle.Approve(f.parent.ID, rec.ID, nil)
	var state *StateError
	if !errors.As(err, &state) {
		t.Fatalf("got %v, want StateError", err)
	}
}

func TestDoubleApproveFails(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})

	rec, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, _, err := f.lifecycle.Approve(f.parent.ID, rec.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, _, err = f.lifecycle.Approve(f.parent.ID, rec.ID, nil)
	var state *StateError
	if !errors.As(err, &state) {
		t.Fatalf("second approval: got %v, want StateError", err)
	}

	// No double grant.
	balance, err := store.NewLedgerStore(f.db).GetBalance(f.childA.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.Balance != 10 {
		t.Errorf("balance = %d, want 10 after failed re-approval", balance.Balance)
	}
}

func TestRacingApprovalsGrantOnce(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})

	rec, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	users := store.NewUserStore(f.db)
	coParent, err := users.Create(f.parent.FamilyID, "Jamie", model.RoleParent)
	if err != nil {
		t.Fatalf("create co-parent: %v", err)
	}

	// Stage the worst-case interleaving: Morgan's approval passes its
	// precondition read, then Jamie's full approval commits before Morgan's
	// transaction opens. The clock hook sits exactly in that window.
	other := NewLifecycle(f.db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	interleaved := false
	f.lifecycle.Now = func() time.Time {
		if !interleaved {
			interleaved = true
			if _, _, err := other.Approve(coParent.ID, rec.ID, nil); err != nil {
				t.Fatalf("interleaved approve: %v", err)
			}
		}
		return time.Now()
	}

	_, _, err = f.lifecycle.Approve(f.parent.ID, rec.ID, nil)
	var state *StateError
	if !errors.As(err, &state) {
		t.Fatalf("late approval: got %v, want StateError", err)
	}

	entries, err := store.NewLedgerStore(f.db).ListByChild(f.childA.ID)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	balance, err := store.NewLedgerStore(f.db).GetBalance(f.childA.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.Balance != 10 {
		t.Errorf("balance = %d, want 10", balance.Balance)
	}
}

func TestRejectFlow(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})

	rec, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, _, err := f.lifecycle.Reject(f.parent.ID, rec.ID, "  "); err == nil {
		t.Fatal("blank rejection reason should fail")
	}

	rejected, events, err := f.lifecycle.Reject(f.parent.ID, rec.ID, "bowls still dirty")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Completed {
		t.Error("rejected record should be available again")
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != "bowls still dirty" {
		t.Error("rejection reason should be stored")
	}
	if len(events) != 1 || events[0].Kind != EventChoreRejected {
		t.Errorf("events = %+v, want one chore.rejected", events)
	}

	// No points were granted.
	balance, err := store.NewLedgerStore(f.db).GetBalance(f.childA.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.Balance != 0 {
		t.Errorf("balance = %d, want 0 after rejection", balance.Balance)
	}

	// Re-complete clears the reason, then approval works normally.
	redone, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("re-complete: %v", err)
	}
	if redone.RejectionReason != nil {
		t.Error("re-completion should clear the rejection reason")
	}
	if _, _, err := f.lifecycle.Approve(f.parent.ID, redone.ID, nil); err != nil {
		t.Fatalf("approve after rejection: %v", err)
	}
}

func TestRejectApprovedFails(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})

	rec, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, _, err := f.lifecycle.Approve(f.parent.ID, rec.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, _, err = f.lifecycle.Reject(f.parent.ID, rec.ID, "changed my mind")
	var state *StateError
	if !errors.As(err, &state) {
		t.Fatalf("got %v, want StateError", err)
	}
}

func TestCooldownBlocksAndExpires(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.lifecycle.Now = func() time.Time { return start }

	rec, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, _, err := f.lifecycle.Approve(f.parent.ID, rec.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// 3 days into a 7 day cooldown.
	f.lifecycle.Now = func() time.Time { return start.Add(3 * 24 * time.Hour) }
	_, _, err = f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	var state *StateError
	if !errors.As(err, &state) {
		t.Fatalf("got %v, want StateError", err)
	}
	if state.DaysUntilAvailable != 4 {
		t.Errorf("days until available = %d, want 4", state.DaysUntilAvailable)
	}

	// 8 days in: a fresh cycle starts implicitly.
	f.lifecycle.Now = func() time.Time { return start.Add(8 * 24 * time.Hour) }
	fresh, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("complete after cooldown: %v", err)
	}
	if !fresh.Completed || fresh.Approved {
		t.Errorf("new cycle should be pending approval: %+v", fresh)
	}

	// Approving the new cycle grants again.
	if _, _, err := f.lifecycle.Approve(f.parent.ID, fresh.ID, nil); err != nil {
		t.Fatalf("approve second cycle: %v", err)
	}
	balance, err := store.NewLedgerStore(f.db).GetBalance(f.childA.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.Balance != 20 {
		t.Errorf("balance = %d, want 20 after two cycles", balance.Balance)
	}
}

func TestPoolClaimConflict(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModePool, nil)

	if _, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID); err != nil {
		t.Fatalf("claim and complete: %v", err)
	}

	_, _, err := f.lifecycle.Complete(f.childB.ID, tmpl.ID)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("got %v, want ConflictError", err)
	}
}

func TestPoolClaimRace(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModePool, nil)

	// The in-memory database exists per connection; pin the pool to one so
	// both goroutines hit the same database.
	f.db.SetMaxOpenConns(1)

	start := make(chan struct{})
	results := make(chan error, 2)
	for _, childID := range []int64{f.childA.ID, f.childB.ID} {
		go func(id int64) {
			<-start
			_, _, err := f.lifecycle.Complete(id, tmpl.ID)
			results <- err
		}(childID)
	}
	close(start)

	var wins, conflicts int
	for i := 0; i < 2; i++ {
		err := <-results
		if err == nil {
			wins++
			continue
		}
		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("got %v, want ConflictError", err)
		}
		conflicts++
	}
	if wins != 1 || conflicts != 1 {
		t.Errorf("wins = %d, conflicts = %d, want exactly one claim to land", wins, conflicts)
	}

	holder, err := store.NewAssignmentStore(f.db).OpenCycleHolder(tmpl.ID)
	if err != nil {
		t.Fatalf("open cycle holder: %v", err)
	}
	if holder == nil {
		t.Fatal("winning claim should hold the open cycle")
	}
}

func TestPoolCooldownIsPerChild(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModePool, nil)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.lifecycle.Now = func() time.Time { return start }

	recA, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("A completes: %v", err)
	}
	if _, _, err := f.lifecycle.Approve(f.parent.ID, recA.ID, nil); err != nil {
		t.Fatalf("approve A: %v", err)
	}

	// A is in cooldown, but the slot is free: B claims a fresh record.
	f.lifecycle.Now = func() time.Time { return start.Add(24 * time.Hour) }
	_, _, err = f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	var state *StateError
	if !errors.As(err, &state) {
		t.Fatalf("A in cooldown: got %v, want StateError", err)
	}

	recB, _, err := f.lifecycle.Complete(f.childB.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("B claims during A's cooldown: %v", err)
	}
	if recB.AssigneeID != f.childB.ID {
		t.Errorf("record assignee = %d, want child B", recB.AssigneeID)
	}
}

func TestMultiAssigneesAreIndependent(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeMulti, []int64{f.childA.ID, f.childB.ID, f.childC.ID})

	recA, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("A completes: %v", err)
	}
	if _, _, err := f.lifecycle.Approve(f.parent.ID, recA.ID, nil); err != nil {
		t.Fatalf("approve A: %v", err)
	}

	// B's record is untouched and still completable.
	if _, _, err := f.lifecycle.Complete(f.childB.ID, tmpl.ID); err != nil {
		t.Fatalf("B completes: %v", err)
	}

	// Only A was paid.
	ledger := store.NewLedgerStore(f.db)
	balA, _ := ledger.GetBalance(f.childA.ID)
	balB, _ := ledger.GetBalance(f.childB.ID)
	balC, _ := ledger.GetBalance(f.childC.ID)
	if balA.Balance != 10 || balB.Balance != 0 || balC.Balance != 0 {
		t.Errorf("balances = %d/%d/%d, want 10/0/0", balA.Balance, balB.Balance, balC.Balance)
	}
}

func TestCompleteUnassignedChild(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})

	_, _, err := f.lifecycle.Complete(f.childB.ID, tmpl.ID)
	var authz *AuthorizationError
	if !errors.As(err, &authz) {
		t.Fatalf("got %v, want AuthorizationError", err)
	}
	if authz.NotFound {
		t.Error("unassigned child in the same family should get a plain authorization failure")
	}
}

func TestCompleteDisabledChore(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})

	if _, err := f.lifecycle.SetDisabled(f.parent.ID, tmpl.ID, true); err != nil {
		t.Fatalf("disable: %v", err)
	}

	_, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	var state *StateError
	if !errors.As(err, &state) {
		t.Fatalf("got %v, want StateError", err)
	}

	if _, err := f.lifecycle.SetDisabled(f.parent.ID, tmpl.ID, false); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if _, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID); err != nil {
		t.Fatalf("complete after enable: %v", err)
	}
}

func TestRoleEnforcement(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})

	rec, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	var authz *AuthorizationError
	if _, _, err := f.lifecycle.Approve(f.childB.ID, rec.ID, nil); !errors.As(err, &authz) {
		t.Errorf("child approving: got %v, want AuthorizationError", err)
	}
	if _, _, err := f.lifecycle.Complete(f.parent.ID, tmpl.ID); !errors.As(err, &authz) {
		t.Errorf("parent completing: got %v, want AuthorizationError", err)
	}
}

func TestCrossFamilyHiddenAsNotFound(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})

	families := store.NewFamilyStore(f.db)
	users := store.NewUserStore(f.db)
	other, err := families.Create("Nguyen")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	otherParent, err := users.Create(other.ID, "Sam", model.RoleParent)
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	otherChild, err := users.Create(other.ID, "Riley", model.RoleChild)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	var authz *AuthorizationError
	if _, _, err := f.lifecycle.Complete(otherChild.ID, tmpl.ID); !errors.As(err, &authz) || !authz.NotFound {
		t.Errorf("cross-family complete: got %v, want not-found authorization error", err)
	}

	rec, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, _, err := f.lifecycle.Approve(otherParent.ID, rec.ID, nil); err == nil {
		t.Error("cross-family approve should fail")
	}
}

func TestUpdateFrozenAfterSettledCycle(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})

	upd := TemplateUpdate{
		Title:        "Dishes v2",
		RewardKind:   model.RewardFixed,
		RewardAmount: 20,
		Recurring:    true,
		CooldownDays: 7,
	}
	if _, _, err := f.lifecycle.UpdateTemplate(f.parent.ID, tmpl.ID, upd); err != nil {
		t.Fatalf("update before any cycle: %v", err)
	}

	if _, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, _, err := f.lifecycle.UpdateTemplate(f.parent.ID, tmpl.ID, upd)
	var state *StateError
	if !errors.As(err, &state) {
		t.Fatalf("update after settled cycle: got %v, want StateError", err)
	}
}

func TestDeleteOnlyByCreator(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})

	users := store.NewUserStore(f.db)
	coParent, err := users.Create(f.parent.FamilyID, "Jamie", model.RoleParent)
	if err != nil {
		t.Fatalf("create co-parent: %v", err)
	}

	var authz *AuthorizationError
	if _, err := f.lifecycle.DeleteTemplate(coParent.ID, tmpl.ID); !errors.As(err, &authz) {
		t.Fatalf("co-parent delete: got %v, want AuthorizationError", err)
	}

	if _, err := f.lifecycle.DeleteTemplate(f.parent.ID, tmpl.ID); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	got, err := store.NewTemplateStore(f.db).GetByID(tmpl.ID)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if got != nil {
		t.Error("template should be gone")
	}
}

func TestAvailableForChild(t *testing.T) {
	f := setupLifecycle(t)

	assigned := f.fixedChore(t, model.ModeSingle, []int64{f.childA.ID})
	pool := f.fixedChore(t, model.ModePool, nil)

	avail, err := f.lifecycle.AvailableForChild(f.childA.ID)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(avail) != 2 {
		t.Fatalf("available count = %d, want assigned + pool", len(avail))
	}

	// A completes the assigned chore: drops out while pending.
	if _, _, err := f.lifecycle.Complete(f.childA.ID, assigned.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	avail, err = f.lifecycle.AvailableForChild(f.childA.ID)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(avail) != 1 || avail[0].Template.ID != pool.ID {
		t.Fatalf("only the pool chore should remain, got %+v", avail)
	}

	// B claims the pool chore: it disappears for A.
	if _, _, err := f.lifecycle.Complete(f.childB.ID, pool.ID); err != nil {
		t.Fatalf("B claims pool: %v", err)
	}
	avail, err = f.lifecycle.AvailableForChild(f.childA.ID)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(avail) != 0 {
		t.Fatalf("nothing should be available to A, got %+v", avail)
	}
}

func TestPendingForParent(t *testing.T) {
	f := setupLifecycle(t)
	tmpl := f.fixedChore(t, model.ModeMulti, []int64{f.childA.ID, f.childB.ID})

	if _, _, err := f.lifecycle.Complete(f.childA.ID, tmpl.ID); err != nil {
		t.Fatalf("A completes: %v", err)
	}
	if _, _, err := f.lifecycle.Complete(f.childB.ID, tmpl.ID); err != nil {
		t.Fatalf("B completes: %v", err)
	}

	pending, err := f.lifecycle.PendingForParent(f.parent.ID)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending count = %d, want 2", len(pending))
	}

	if _, err := f.lifecycle.PendingForParent(f.childA.ID); err == nil {
		t.Error("children should not read the approval queue")
	}
}
