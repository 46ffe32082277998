package store

import (
	"database/sql"
	"fmt"

	"github.com/mhutchens/chorebank/internal/model"
)

type LedgerStore struct {
	db DBTX
}

func NewLedgerStore(db DBTX) *LedgerStore {
	return &LedgerStore{db: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *LedgerStore) WithTx(tx *sql.Tx) *LedgerStore {
	return &LedgerStore{db: tx}
}

func scanLedgerEntry(scanner interface{ Scan(...any) error }) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var source sql.NullInt64

	err := scanner.Scan(&e.ID, &e.ChildID, &e.Amount, &e.Reason, &source, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if source.Valid {
		e.SourceTemplateID = &source.Int64
	}
	return &e, nil
}

const ledgerCols = `id, child_id, amount, reason, source_template_id, created_at`

// Grant appends a reward entry for the child. Invoked from Approve inside
// the approval transaction.
func (s *LedgerStore) Grant(childID int64, amount int, reason string, sourceTemplateID *int64) (*model.LedgerEntry, error) {
	var source sql.NullInt64
	if sourceTemplateID != nil {
		source = sql.NullInt64{Int64: *sourceTemplateID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO ledger_entries (child_id, amount, reason, source_template_id) VALUES (?, ?, ?, ?)`,
		childID, amount, reason, source,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+ledgerCols+` FROM ledger_entries WHERE id = ?`, id)
	return scanLedgerEntry(row)
}

func (s *LedgerStore) ListByChild(childID int64) ([]model.LedgerEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+ledgerCols+` FROM ledger_entries WHERE child_id = ? ORDER BY created_at DESC, id DESC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// GetBalance sums the child's entries.
func (s *LedgerStore) GetBalance(childID int64) (*model.Balance, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE child_id = ?`,
		childID,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("sum ledger entries: %w", err)
	}

	var name string
	err = s.db.QueryRow(`SELECT name FROM users WHERE id = ?`, childID).Scan(&name)
	if err == sql.ErrNoRows {
		name = "Unknown"
	} else if err != nil {
		return nil, fmt.Errorf("get child name: %w", err)
	}

	return &model.Balance{
		ChildID:   childID,
		ChildName: name,
		Balance:   int(total.Int64),
	}, nil
}

// ListBalances returns a balance per child in the family, highest first.
func (s *LedgerStore) ListBalances(familyID int64) ([]model.Balance, error) {
	rows, err := s.db.Query(
		`SELECT u.id, u.name, COALESCE(SUM(e.amount), 0) AS balance
		 FROM users u
		 LEFT JOIN ledger_entries e ON e.child_id = u.id
		 WHERE u.family_id = ? AND u.role = ?
		 GROUP BY u.id, u.name
		 ORDER BY balance DESC, u.name ASC`,
		familyID, model.RoleChild,
	)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var balances []model.Balance
	for rows.Next() {
		var b model.Balance
		if err := rows.Scan(&b.ChildID, &b.ChildName, &b.Balance); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
