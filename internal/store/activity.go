package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mhutchens/chorebank/internal/model"
)

type ActivityStore struct {
	db DBTX
}

func NewActivityStore(db DBTX) *ActivityStore {
	return &ActivityStore{db: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *ActivityStore) WithTx(tx *sql.Tx) *ActivityStore {
	return &ActivityStore{db: tx}
}

func scanActivity(scanner interface{ Scan(...any) error }) (*model.ActivityEntry, error) {
	var e model.ActivityEntry
	var target sql.NullInt64

	err := scanner.Scan(&e.ID, &e.Kind, &e.ActorID, &e.SubjectID, &target, &e.Payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if target.Valid {
		e.TargetID = &target.Int64
	}
	return &e, nil
}

const activityCols = `id, kind, actor_id, subject_id, target_id, payload, created_at`

// Record appends an activity entry. Payload marshal failures are returned,
// not swallowed: inside a lifecycle transaction they must abort the commit.
func (s *ActivityStore) Record(kind string, actorID, subjectID int64, targetID *int64, payload map[string]any) (*model.ActivityEntry, error) {
	body := []byte(`{}`)
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal activity payload: %w", err)
		}
	}

	var target sql.NullInt64
	if targetID != nil {
		target = sql.NullInt64{Int64: *targetID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO activity_log (kind, actor_id, subject_id, target_id, payload) VALUES (?, ?, ?, ?, ?)`,
		kind, actorID, subjectID, target, string(body),
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+activityCols+` FROM activity_log WHERE id = ?`, id)
	return scanActivity(row)
}

// ListByFamily returns the newest entries whose actor belongs to the family.
func (s *ActivityStore) ListByFamily(familyID int64, limit int) ([]model.ActivityEntry, error) {
	rows, err := s.db.Query(
		`SELECT e.id, e.kind, e.actor_id, e.subject_id, e.target_id, e.payload, e.created_at
		 FROM activity_log e
		 JOIN users u ON u.id = e.actor_id
		 WHERE u.family_id = ?
		 ORDER BY e.created_at DESC, e.id DESC
		 LIMIT ?`,
		familyID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []model.ActivityEntry
	for rows.Next() {
		e, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
