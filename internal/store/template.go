package store

import (
	"database/sql"
	"fmt"

	"github.com/mhutchens/chorebank/internal/model"
)

type TemplateStore struct {
	db DBTX
}

func NewTemplateStore(db DBTX) *TemplateStore {
	return &TemplateStore{db: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *TemplateStore) WithTx(tx *sql.Tx) *TemplateStore {
	return &TemplateStore{db: tx}
}

func scanTemplate(scanner interface{ Scan(...any) error }) (*model.ChoreTemplate, error) {
	var t model.ChoreTemplate
	err := scanner.Scan(
		&t.ID, &t.FamilyID, &t.CreatedBy, &t.Title, &t.Description,
		&t.RewardKind, &t.RewardAmount, &t.RewardMin, &t.RewardMax,
		&t.Recurring, &t.CooldownDays, &t.Mode, &t.Disabled,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const templateCols = `id, family_id, created_by, title, description, reward_kind, reward_amount, reward_min, reward_max, recurring, cooldown_days, mode, disabled, created_at, updated_at`

func (s *TemplateStore) Create(familyID, createdBy int64, title, description, rewardKind string, rewardAmount, rewardMin, rewardMax int, recurring bool, cooldownDays int, mode string) (*model.ChoreTemplate, error) {
	result, err := s.db.Exec(
		`INSERT INTO chore_templates
		 (family_id, created_by, title, description, reward_kind, reward_amount, reward_min, reward_max, recurring, cooldown_days, mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		familyID, createdBy, title, description, rewardKind, rewardAmount, rewardMin, rewardMax, recurring, cooldownDays, mode,
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TemplateStore) GetByID(id int64) (*model.ChoreTemplate, error) {
	row := s.db.QueryRow(`SELECT `+templateCols+` FROM chore_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *TemplateStore) ListByFamily(familyID int64) ([]model.ChoreTemplate, error) {
	rows, err := s.db.Query(
		`SELECT `+templateCols+` FROM chore_templates WHERE family_id = ? ORDER BY title ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

// ListPoolByFamily returns the family's enabled pool templates, for the
// available-chores read path.
func (s *TemplateStore) ListPoolByFamily(familyID int64) ([]model.ChoreTemplate, error) {
	rows, err := s.db.Query(
		`SELECT `+templateCols+` FROM chore_templates WHERE family_id = ? AND mode = ? AND disabled = 0 ORDER BY title ASC`,
		familyID, model.ModePool,
	)
	if err != nil {
		return nil, fmt.Errorf("list pool templates: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

func collectTemplates(rows *sql.Rows) ([]model.ChoreTemplate, error) {
	var templates []model.ChoreTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// Update rewrites the mutable template fields. Mode and ownership are
// immutable; the lifecycle enforces when updates are permitted at all.
func (s *TemplateStore) Update(id int64, title, description, rewardKind string, rewardAmount, rewardMin, rewardMax int, recurring bool, cooldownDays int) (*model.ChoreTemplate, error) {
	_, err := s.db.Exec(
		`UPDATE chore_templates
		 SET title = ?, description = ?, reward_kind = ?, reward_amount = ?, reward_min = ?, reward_max = ?, recurring = ?, cooldown_days = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		title, description, rewardKind, rewardAmount, rewardMin, rewardMax, recurring, cooldownDays, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return s.GetByID(id)
}

func (s *TemplateStore) SetDisabled(id int64, disabled bool) error {
	_, err := s.db.Exec(
		`UPDATE chore_templates SET disabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		disabled, id,
	)
	if err != nil {
		return fmt.Errorf("set template disabled: %w", err)
	}
	return nil
}

func (s *TemplateStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chore_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}
