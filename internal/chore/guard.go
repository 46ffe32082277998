package chore

import (
	"github.com/mhutchens/chorebank/internal/model"
)

// UserDirectory is the slice of the user store the guard needs to resolve a
// user's family and role.
type UserDirectory interface {
	GetByID(id int64) (*model.User, error)
}

// Guard verifies parent/child/family ownership before lifecycle mutations.
type Guard struct {
	users UserDirectory
}

func NewGuard(users UserDirectory) *Guard {
	return &Guard{users: users}
}

// RequireParent resolves the caller and checks the parent role.
func (g *Guard) RequireParent(callerID int64) (*model.User, error) {
	u, err := g.users.GetByID(callerID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &AuthorizationError{Msg: "user not found", NotFound: true}
	}
	if !u.IsParent() {
		return nil, &AuthorizationError{Msg: "only a parent may do this"}
	}
	return u, nil
}

// RequireChild resolves the caller and checks the child role.
func (g *Guard) RequireChild(callerID int64) (*model.User, error) {
	u, err := g.users.GetByID(callerID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &AuthorizationError{Msg: "user not found", NotFound: true}
	}
	if !u.IsChild() {
		return nil, &AuthorizationError{Msg: "only a child may do this"}
	}
	return u, nil
}

// RequireChildInFamily resolves an assignee and checks that they are a child
// of the given family. A missing user is a not-found failure; a user from
// another family is a plain authorization failure.
func (g *Guard) RequireChildInFamily(familyID, childID int64) (*model.User, error) {
	u, err := g.users.GetByID(childID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &AuthorizationError{Msg: "assignee not found", NotFound: true}
	}
	if u.FamilyID != familyID {
		return nil, &AuthorizationError{Msg: "assignee belongs to a different family"}
	}
	if !u.IsChild() {
		return nil, &ValidationError{Msg: "assignee must be a child"}
	}
	return u, nil
}

// requireFamilyTemplate hides templates of other families behind not-found.
func requireFamilyTemplate(t *model.ChoreTemplate, familyID int64) error {
	if t == nil || t.FamilyID != familyID {
		return &AuthorizationError{Msg: "chore not found", NotFound: true}
	}
	return nil
}
