package model

import "time"

const (
	RoleParent = "parent"
	RoleChild  = "child"
)

type User struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	HasPIN    bool      `json:"has_pin"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsParent() bool { return u.Role == RoleParent }
func (u *User) IsChild() bool  { return u.Role == RoleChild }
