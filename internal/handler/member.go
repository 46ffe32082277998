package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mhutchens/chorebank/internal/auth"
	"github.com/mhutchens/chorebank/internal/model"
	"github.com/mhutchens/chorebank/internal/store"
)

type MemberHandler struct {
	users  *store.UserStore
	logger *slog.Logger
}

func NewMemberHandler(users *store.UserStore, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{users: users, logger: logger}
}

// List returns every member of the caller's family in sort order.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.users.ListByFamily(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list family members"})
		return
	}
	if members == nil {
		members = []model.User{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Role != model.RoleParent && req.Role != model.RoleChild {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "role must be parent or child"})
		return
	}

	member, err := h.users.Create(auth.FamilyID(r.Context()), req.Name, req.Role)
	if err != nil {
		h.logger.Error("create member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create family member"})
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	member, ok := h.familyMember(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	updated, err := h.users.Update(member.ID, req.Name)
	if err != nil {
		h.logger.Error("update member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update family member"})
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	member, ok := h.familyMember(w, r)
	if !ok {
		return
	}
	if member.ID == auth.UserID(r.Context()) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot delete yourself"})
		return
	}

	if err := h.users.Delete(member.ID); err != nil {
		h.logger.Error("delete member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete family member"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// SetPIN hashes and stores a new PIN for the member.
func (h *MemberHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	member, ok := h.familyMember(w, r)
	if !ok {
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if !validPIN(req.PIN) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pin must be 4-8 digits"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to hash pin"})
		return
	}
	if err := h.users.SetPINHash(member.ID, string(hash)); err != nil {
		h.logger.Error("set pin", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store pin"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin set"})
}

// ClearPIN removes a member's PIN. Parents keep theirs; an account that can
// approve chores must stay locked.
func (h *MemberHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	member, ok := h.familyMember(w, r)
	if !ok {
		return
	}
	if member.IsParent() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "parents must have a PIN"})
		return
	}

	if err := h.users.ClearPIN(member.ID); err != nil {
		h.logger.Error("clear pin", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear pin"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin cleared"})
}

// familyMember resolves the {id} path parameter to a member of the caller's
// family, writing the error response itself when that fails.
func (h *MemberHandler) familyMember(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	member, err := h.users.GetByID(id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family member"})
		return nil, false
	}
	if member == nil || member.FamilyID != auth.FamilyID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family member not found"})
		return nil, false
	}
	return member, true
}
