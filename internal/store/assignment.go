package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mhutchens/chorebank/internal/model"
)

type AssignmentStore struct {
	db DBTX
}

func NewAssignmentStore(db DBTX) *AssignmentStore {
	return &AssignmentStore{db: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *AssignmentStore) WithTx(tx *sql.Tx) *AssignmentStore {
	return &AssignmentStore{db: tx}
}

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var completedAt, approvedAt sql.NullTime
	var approvedAmount sql.NullInt64
	var rejectionReason sql.NullString

	err := scanner.Scan(
		&a.ID, &a.TemplateID, &a.AssigneeID, &a.Completed, &a.Approved,
		&completedAt, &approvedAt, &approvedAmount, &rejectionReason,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	if approvedAt.Valid {
		a.ApprovedAt = &approvedAt.Time
	}
	if approvedAmount.Valid {
		amount := int(approvedAmount.Int64)
		a.ApprovedAmount = &amount
	}
	if rejectionReason.Valid {
		a.RejectionReason = &rejectionReason.String
	}
	return &a, nil
}

const assignmentCols = `id, template_id, assignee_id, completed, approved, completed_at, approved_at, approved_amount, rejection_reason, created_at, updated_at`

func (s *AssignmentStore) Create(templateID, assigneeID int64) (*model.Assignment, error) {
	result, err := s.db.Exec(
		`INSERT INTO assignments (template_id, assignee_id) VALUES (?, ?)`,
		templateID, assigneeID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// ClaimPool inserts the claiming record for a pool template, but only if no
// other record currently holds an open cycle on it (a record whose cycle is
// not yet approved). The single INSERT...SELECT makes the claim atomic:
// of two racing claims exactly one inserts a row.
func (s *AssignmentStore) ClaimPool(templateID, assigneeID int64) (*model.Assignment, error) {
	result, err := s.db.Exec(
		`INSERT INTO assignments (template_id, assignee_id)
		 SELECT ?, ?
		 WHERE NOT EXISTS (
		     SELECT 1 FROM assignments
		     WHERE template_id = ? AND NOT (completed = 1 AND approved = 1)
		 )`,
		templateID, assigneeID, templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("claim pool assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AssignmentStore) GetByID(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (s *AssignmentStore) GetByTemplateAndAssignee(templateID, assigneeID int64) (*model.Assignment, error) {
	row := s.db.QueryRow(
		`SELECT `+assignmentCols+` FROM assignments WHERE template_id = ? AND assignee_id = ?`,
		templateID, assigneeID,
	)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment by template and assignee: %w", err)
	}
	return a, nil
}

func (s *AssignmentStore) ListByTemplate(templateID int64) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments WHERE template_id = ? ORDER BY id ASC`,
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// OpenCycleHolder returns the record currently holding an open cycle on a
// pool template, or nil when the slot is free.
func (s *AssignmentStore) OpenCycleHolder(templateID int64) (*model.Assignment, error) {
	row := s.db.QueryRow(
		`SELECT `+assignmentCols+` FROM assignments
		 WHERE template_id = ? AND NOT (completed = 1 AND approved = 1) LIMIT 1`,
		templateID,
	)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open cycle holder: %w", err)
	}
	return a, nil
}

// MarkCompleted enters the pending-approval state and clears any rejection
// reason from the prior attempt.
func (s *AssignmentStore) MarkCompleted(id int64, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE assignments
		 SET completed = 1, approved = 0, completed_at = ?, rejection_reason = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark assignment completed: %w", err)
	}
	return nil
}

// ResetCycle clears the completion flags for a new cycle. approved_at is
// deliberately retained: it is the prior cycle's approval timestamp and
// feeds the next cycle's cooldown computation.
func (s *AssignmentStore) ResetCycle(id int64) error {
	_, err := s.db.Exec(
		`UPDATE assignments
		 SET completed = 0, approved = 0, completed_at = NULL, rejection_reason = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("reset assignment cycle: %w", err)
	}
	return nil
}

// Approve marks the open cycle approved. The guard on completed and
// approved makes the update a no-op when the record has already moved on;
// like ClaimPool, the caller learns it lost from the affected-row count,
// so a stale pre-transaction read can never grant twice.
func (s *AssignmentStore) Approve(id int64, at time.Time, amount int) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE assignments
		 SET approved = 1, approved_at = ?, approved_amount = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND completed = 1 AND approved = 0`,
		at.UTC(), amount, id,
	)
	if err != nil {
		return false, fmt.Errorf("approve assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Reject returns the record to the available state. The reason is retained
// for audit until the assignee completes again. The same pending-cycle
// guard as Approve applies: a reject racing an approval matches no row
// rather than un-completing an approved record.
func (s *AssignmentStore) Reject(id int64, reason string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE assignments
		 SET completed = 0, completed_at = NULL, rejection_reason = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND completed = 1 AND approved = 0`,
		reason, id,
	)
	if err != nil {
		return false, fmt.Errorf("reject assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// CountSettledByTemplate counts records that have ever completed or been
// approved on the template. Templates with a non-zero count are frozen
// against edits.
func (s *AssignmentStore) CountSettledByTemplate(templateID int64) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM assignments
		 WHERE template_id = ? AND (completed = 1 OR approved_at IS NOT NULL)`,
		templateID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count settled assignments: %w", err)
	}
	return n, nil
}

// AssignmentWithTemplate pairs a record with its template for read paths
// that filter on both.
type AssignmentWithTemplate struct {
	Assignment model.Assignment
	Template   model.ChoreTemplate
}

// ListAssignedForChild returns the child's single/multi assignment records
// on enabled templates, with templates attached.
func (s *AssignmentStore) ListAssignedForChild(childID int64) ([]AssignmentWithTemplate, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.template_id, a.assignee_id, a.completed, a.approved,
		        a.completed_at, a.approved_at, a.approved_amount, a.rejection_reason,
		        a.created_at, a.updated_at,
		        t.id, t.family_id, t.created_by, t.title, t.description,
		        t.reward_kind, t.reward_amount, t.reward_min, t.reward_max,
		        t.recurring, t.cooldown_days, t.mode, t.disabled, t.created_at, t.updated_at
		 FROM assignments a
		 JOIN chore_templates t ON t.id = a.template_id
		 WHERE a.assignee_id = ? AND t.mode != ? AND t.disabled = 0
		 ORDER BY t.title ASC`,
		childID, model.ModePool,
	)
	if err != nil {
		return nil, fmt.Errorf("list assigned for child: %w", err)
	}
	defer rows.Close()

	var out []AssignmentWithTemplate
	for rows.Next() {
		var a model.Assignment
		var t model.ChoreTemplate
		var completedAt, approvedAt sql.NullTime
		var approvedAmount sql.NullInt64
		var rejectionReason sql.NullString

		err := rows.Scan(
			&a.ID, &a.TemplateID, &a.AssigneeID, &a.Completed, &a.Approved,
			&completedAt, &approvedAt, &approvedAmount, &rejectionReason,
			&a.CreatedAt, &a.UpdatedAt,
			&t.ID, &t.FamilyID, &t.CreatedBy, &t.Title, &t.Description,
			&t.RewardKind, &t.RewardAmount, &t.RewardMin, &t.RewardMax,
			&t.Recurring, &t.CooldownDays, &t.Mode, &t.Disabled, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan assigned row: %w", err)
		}
		if completedAt.Valid {
			a.CompletedAt = &completedAt.Time
		}
		if approvedAt.Valid {
			a.ApprovedAt = &approvedAt.Time
		}
		if approvedAmount.Valid {
			amount := int(approvedAmount.Int64)
			a.ApprovedAmount = &amount
		}
		if rejectionReason.Valid {
			a.RejectionReason = &rejectionReason.String
		}
		out = append(out, AssignmentWithTemplate{Assignment: a, Template: t})
	}
	return out, rows.Err()
}

// PendingApproval is a completed-but-unapproved record joined with display
// fields for the parent's approval queue.
type PendingApproval struct {
	Assignment    model.Assignment `json:"assignment"`
	TemplateTitle string           `json:"template_title"`
	AssigneeName  string           `json:"assignee_name"`
}

// ListPendingForFamily returns all completed, unapproved records on the
// family's templates, oldest completion first.
func (s *AssignmentStore) ListPendingForFamily(familyID int64) ([]PendingApproval, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.template_id, a.assignee_id, a.completed, a.approved,
		        a.completed_at, a.approved_at, a.approved_amount, a.rejection_reason,
		        a.created_at, a.updated_at,
		        t.title, u.name
		 FROM assignments a
		 JOIN chore_templates t ON t.id = a.template_id
		 JOIN users u ON u.id = a.assignee_id
		 WHERE t.family_id = ? AND a.completed = 1 AND a.approved = 0
		 ORDER BY a.completed_at ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending for family: %w", err)
	}
	defer rows.Close()

	var out []PendingApproval
	for rows.Next() {
		var p PendingApproval
		var completedAt, approvedAt sql.NullTime
		var approvedAmount sql.NullInt64
		var rejectionReason sql.NullString

		err := rows.Scan(
			&p.Assignment.ID, &p.Assignment.TemplateID, &p.Assignment.AssigneeID,
			&p.Assignment.Completed, &p.Assignment.Approved,
			&completedAt, &approvedAt, &approvedAmount, &rejectionReason,
			&p.Assignment.CreatedAt, &p.Assignment.UpdatedAt,
			&p.TemplateTitle, &p.AssigneeName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		if completedAt.Valid {
			p.Assignment.CompletedAt = &completedAt.Time
		}
		if approvedAt.Valid {
			p.Assignment.ApprovedAt = &approvedAt.Time
		}
		if approvedAmount.Valid {
			amount := int(approvedAmount.Int64)
			p.Assignment.ApprovedAmount = &amount
		}
		if rejectionReason.Valid {
			p.Assignment.RejectionReason = &rejectionReason.String
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
