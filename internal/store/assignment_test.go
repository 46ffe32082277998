package store

import (
	"testing"
	"time"

	"github.com/mhutchens/chorebank/internal/model"
)

func TestAssignmentUniquePerTemplateAndAssignee(t *testing.T) {
	db := setupTestDB(t)
	_, parent, child, _ := seedFamily(t, db)
	tmpl := seedTemplate(t, db, parent.FamilyID, parent.ID, model.ModeSingle)

	assignments := NewAssignmentStore(db)
	if _, err := assignments.Create(tmpl.ID, child.ID); err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if _, err := assignments.Create(tmpl.ID, child.ID); err == nil {
		t.Fatal("expected unique constraint violation on duplicate assignment")
	}
}

func TestClaimPoolExclusive(t *testing.T) {
	db := setupTestDB(t)
	_, parent, childA, childB := seedFamily(t, db)
	tmpl := seedTemplate(t, db, parent.FamilyID, parent.ID, model.ModePool)

	assignments := NewAssignmentStore(db)

	rec, err := assignments.ClaimPool(tmpl.ID, childA.ID)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if rec == nil {
		t.Fatal("first claim should succeed")
	}

	// Slot is held by A's open cycle.
	lost, err := assignments.ClaimPool(tmpl.ID, childB.ID)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if lost != nil {
		t.Fatal("second claim should return nil while the slot is held")
	}

	// Complete and approve A's cycle, then B can claim.
	now := time.Now().UTC()
	if err := assignments.MarkCompleted(rec.ID, now); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if ok, err := assignments.Approve(rec.ID, now, 10); err != nil || !ok {
		t.Fatalf("approve: ok=%v err=%v", ok, err)
	}

	won, err := assignments.ClaimPool(tmpl.ID, childB.ID)
	if err != nil {
		t.Fatalf("third claim: %v", err)
	}
	if won == nil {
		t.Fatal("claim should succeed after the open cycle settles")
	}
	if won.AssigneeID != childB.ID {
		t.Errorf("assignee = %d, want %d", won.AssigneeID, childB.ID)
	}
}

func TestOpenCycleHolder(t *testing.T) {
	db := setupTestDB(t)
	_, parent, child, _ := seedFamily(t, db)
	tmpl := seedTemplate(t, db, parent.FamilyID, parent.ID, model.ModePool)

	assignments := NewAssignmentStore(db)

	holder, err := assignments.OpenCycleHolder(tmpl.ID)
	if err != nil {
		t.Fatalf("open cycle holder: %v", err)
	}
	if holder != nil {
		t.Fatal("empty pool should have no holder")
	}

	rec, err := assignments.ClaimPool(tmpl.ID, child.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	holder, err = assignments.OpenCycleHolder(tmpl.ID)
	if err != nil {
		t.Fatalf("open cycle holder: %v", err)
	}
	if holder == nil || holder.ID != rec.ID {
		t.Fatal("claimed record should hold the open cycle")
	}

	now := time.Now().UTC()
	if err := assignments.MarkCompleted(rec.ID, now); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if ok, err := assignments.Approve(rec.ID, now, 5); err != nil || !ok {
		t.Fatalf("approve: ok=%v err=%v", ok, err)
	}

	holder, err = assignments.OpenCycleHolder(tmpl.ID)
	if err != nil {
		t.Fatalf("open cycle holder: %v", err)
	}
	if holder != nil {
		t.Fatal("settled cycle should free the slot")
	}
}

func TestMarkCompletedClearsRejectionReason(t *testing.T) {
	db := setupTestDB(t)
	_, parent, child, _ := seedFamily(t, db)
	tmpl := seedTemplate(t, db, parent.FamilyID, parent.ID, model.ModeSingle)

	assignments := NewAssignmentStore(db)
	rec, err := assignments.Create(tmpl.ID, child.ID)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	now := time.Now().UTC()
	if err := assignments.MarkCompleted(rec.ID, now); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if ok, err := assignments.Reject(rec.ID, "not actually done"); err != nil || !ok {
		t.Fatalf("reject: ok=%v err=%v", ok, err)
	}

	rec, err = assignments.GetByID(rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Completed {
		t.Error("rejected record should not be completed")
	}
	if rec.RejectionReason == nil || *rec.RejectionReason != "not actually done" {
		t.Error("rejection reason should be retained after reject")
	}

	if err := assignments.MarkCompleted(rec.ID, now); err != nil {
		t.Fatalf("re-complete: %v", err)
	}
	rec, err = assignments.GetByID(rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.RejectionReason != nil {
		t.Error("re-completion should clear the rejection reason")
	}
}

func TestResetCycleRetainsApprovedAt(t *testing.T) {
	db := setupTestDB(t)
	_, parent, child, _ := seedFamily(t, db)
	tmpl := seedTemplate(t, db, parent.FamilyID, parent.ID, model.ModeSingle)

	assignments := NewAssignmentStore(db)
	rec, err := assignments.Create(tmpl.ID, child.ID)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	now := time.Now().UTC()
	if err := assignments.MarkCompleted(rec.ID, now); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if ok, err := assignments.Approve(rec.ID, now, 10); err != nil || !ok {
		t.Fatalf("approve: ok=%v err=%v", ok, err)
	}
	if err := assignments.ResetCycle(rec.ID); err != nil {
		t.Fatalf("reset cycle: %v", err)
	}

	rec, err = assignments.GetByID(rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Completed || rec.Approved {
		t.Error("reset should clear completion flags")
	}
	if rec.ApprovedAt == nil {
		t.Error("reset should retain the prior approval timestamp")
	}
}

func TestApproveOnlyMatchesPendingCycle(t *testing.T) {
	db := setupTestDB(t)
	_, parent, child, _ := seedFamily(t, db)
	tmpl := seedTemplate(t, db, parent.FamilyID, parent.ID, model.ModeSingle)

	assignments := NewAssignmentStore(db)
	rec, err := assignments.Create(tmpl.ID, child.ID)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	now := time.Now().UTC()

	// Not yet completed: nothing to approve.
	if ok, err := assignments.Approve(rec.ID, now, 10); err != nil || ok {
		t.Fatalf("approve before completion: ok=%v err=%v, want no match", ok, err)
	}

	if err := assignments.MarkCompleted(rec.ID, now); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if ok, err := assignments.Approve(rec.ID, now, 10); err != nil || !ok {
		t.Fatalf("approve: ok=%v err=%v", ok, err)
	}

	// Second approval of the same cycle matches no row and changes nothing.
	if ok, err := assignments.Approve(rec.ID, now.Add(time.Hour), 99); err != nil || ok {
		t.Fatalf("re-approve: ok=%v err=%v, want no match", ok, err)
	}
	rec, err = assignments.GetByID(rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.ApprovedAmount == nil || *rec.ApprovedAmount != 10 {
		t.Errorf("approved amount = %v, want the first approval's 10", rec.ApprovedAmount)
	}
}

func TestRejectCannotOverrideApproval(t *testing.T) {
	db := setupTestDB(t)
	_, parent, child, _ := seedFamily(t, db)
	tmpl := seedTemplate(t, db, parent.FamilyID, parent.ID, model.ModeSingle)

	assignments := NewAssignmentStore(db)
	rec, err := assignments.Create(tmpl.ID, child.ID)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	now := time.Now().UTC()
	if err := assignments.MarkCompleted(rec.ID, now); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if ok, err := assignments.Approve(rec.ID, now, 10); err != nil || !ok {
		t.Fatalf("approve: ok=%v err=%v", ok, err)
	}

	// A reject landing after the approval matches no row: approved records
	// stay completed.
	if ok, err := assignments.Reject(rec.ID, "too late"); err != nil || ok {
		t.Fatalf("reject after approval: ok=%v err=%v, want no match", ok, err)
	}
	rec, err = assignments.GetByID(rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !rec.Completed || !rec.Approved {
		t.Errorf("record = completed %v approved %v, want both true", rec.Completed, rec.Approved)
	}
	if rec.RejectionReason != nil {
		t.Error("no rejection reason should be stored")
	}
}

func TestCountSettledByTemplate(t *testing.T) {
	db := setupTestDB(t)
	_, parent, childA, childB := seedFamily(t, db)
	tmpl := seedTemplate(t, db, parent.FamilyID, parent.ID, model.ModeMulti)

	assignments := NewAssignmentStore(db)
	recA, err := assignments.Create(tmpl.ID, childA.ID)
	if err != nil {
		t.Fatalf("create A: %v", err)
	}
	if _, err := assignments.Create(tmpl.ID, childB.ID); err != nil {
		t.Fatalf("create B: %v", err)
	}

	n, err := assignments.CountSettledByTemplate(tmpl.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("fresh template should have 0 settled records, got %d", n)
	}

	if err := assignments.MarkCompleted(recA.ID, time.Now().UTC()); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	n, err = assignments.CountSettledByTemplate(tmpl.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("settled count = %d, want 1", n)
	}
}

func TestListPendingForFamilyOrder(t *testing.T) {
	db := setupTestDB(t)
	_, parent, childA, childB := seedFamily(t, db)
	tmpl := seedTemplate(t, db, parent.FamilyID, parent.ID, model.ModeMulti)

	assignments := NewAssignmentStore(db)
	recA, _ := assignments.Create(tmpl.ID, childA.ID)
	recB, _ := assignments.Create(tmpl.ID, childB.ID)

	base := time.Now().UTC()
	if err := assignments.MarkCompleted(recB.ID, base.Add(-time.Hour)); err != nil {
		t.Fatalf("mark B: %v", err)
	}
	if err := assignments.MarkCompleted(recA.ID, base); err != nil {
		t.Fatalf("mark A: %v", err)
	}

	pending, err := assignments.ListPendingForFamily(parent.FamilyID)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending count = %d, want 2", len(pending))
	}
	if pending[0].Assignment.ID != recB.ID {
		t.Error("oldest completion should come first")
	}
	if pending[0].AssigneeName != "Blake" {
		t.Errorf("assignee name = %q, want %q", pending[0].AssigneeName, "Blake")
	}
	if pending[0].TemplateTitle != "Dishes" {
		t.Errorf("template title = %q, want %q", pending[0].TemplateTitle, "Dishes")
	}
}

func TestDeleteTemplateCascadesAssignments(t *testing.T) {
	db := setupTestDB(t)
	_, parent, child, _ := seedFamily(t, db)
	tmpl := seedTemplate(t, db, parent.FamilyID, parent.ID, model.ModeSingle)

	templates := NewTemplateStore(db)
	assignments := NewAssignmentStore(db)

	rec, err := assignments.Create(tmpl.ID, child.ID)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if err := templates.Delete(tmpl.ID); err != nil {
		t.Fatalf("delete template: %v", err)
	}

	got, err := assignments.GetByID(rec.ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if got != nil {
		t.Error("deleting the template should cascade to its assignments")
	}
}
