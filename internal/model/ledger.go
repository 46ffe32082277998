package model

import "time"

type LedgerEntry struct {
	ID               int64     `json:"id"`
	ChildID          int64     `json:"child_id"`
	Amount           int       `json:"amount"`
	Reason           string    `json:"reason"`
	SourceTemplateID *int64    `json:"source_template_id"`
	CreatedAt        time.Time `json:"created_at"`
}

type Balance struct {
	ChildID   int64  `json:"child_id"`
	ChildName string `json:"child_name"`
	Balance   int    `json:"balance"`
}
