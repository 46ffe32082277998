package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mhutchens/chorebank/internal/auth"
	"github.com/mhutchens/chorebank/internal/chore"
	"github.com/mhutchens/chorebank/internal/model"
	"github.com/mhutchens/chorebank/internal/push"
	"github.com/mhutchens/chorebank/internal/store"
	"github.com/mhutchens/chorebank/internal/websocket"
)

type ChoreHandler struct {
	lifecycle *chore.Lifecycle
	templates *store.TemplateStore
	hub       *websocket.Hub
	notifier  *push.Notifier
	logger    *slog.Logger
}

func NewChoreHandler(lifecycle *chore.Lifecycle, templates *store.TemplateStore, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{
		lifecycle: lifecycle,
		templates: templates,
		hub:       hub,
		notifier:  notifier,
		logger:    logger,
	}
}

// dispatch fans committed events out to websocket clients and, in the
// background, to push subscribers.
func (h *ChoreHandler) dispatch(events []chore.Event) {
	if len(events) == 0 {
		return
	}
	if h.hub != nil {
		h.hub.BroadcastEvents(events)
	}
	if h.notifier != nil {
		go h.notifier.Notify(context.Background(), events)
	}
}

type templateRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	RewardKind   string  `json:"reward_kind"`
	RewardAmount int     `json:"reward_amount"`
	RewardMin    int     `json:"reward_min"`
	RewardMax    int     `json:"reward_max"`
	Recurring    bool    `json:"recurring"`
	CooldownDays int     `json:"cooldown_days"`
	Mode         string  `json:"mode"`
	AssigneeIDs  []int64 `json:"assignee_ids"`
}

// List returns the family's chore templates, disabled ones included; the
// client decides how to render them.
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.ListByFamily(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list chores", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list chores"})
		return
	}
	if templates == nil {
		templates = []model.ChoreTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	tmpl, err := h.templates.GetByID(id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if tmpl == nil || tmpl.FamilyID != auth.FamilyID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	tmpl, records, events, err := h.lifecycle.CreateTemplate(auth.UserID(r.Context()), chore.TemplateConfig{
		Title:        req.Title,
		Description:  req.Description,
		RewardKind:   req.RewardKind,
		RewardAmount: req.RewardAmount,
		RewardMin:    req.RewardMin,
		RewardMax:    req.RewardMax,
		Recurring:    req.Recurring,
		CooldownDays: req.CooldownDays,
		Mode:         req.Mode,
		AssigneeIDs:  req.AssigneeIDs,
	})
	if err != nil {
		writeChoreError(w, h.logger, err)
		return
	}

	h.dispatch(events)
	if records == nil {
		records = []model.Assignment{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"template": tmpl, "assignments": records})
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	tmpl, events, err := h.lifecycle.UpdateTemplate(auth.UserID(r.Context()), id, chore.TemplateUpdate{
		Title:        req.Title,
		Description:  req.Description,
		RewardKind:   req.RewardKind,
		RewardAmount: req.RewardAmount,
		RewardMin:    req.RewardMin,
		RewardMax:    req.RewardMax,
		Recurring:    req.Recurring,
		CooldownDays: req.CooldownDays,
	})
	if err != nil {
		writeChoreError(w, h.logger, err)
		return
	}

	h.dispatch(events)
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *ChoreHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, true)
}

func (h *ChoreHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, false)
}

func (h *ChoreHandler) setDisabled(w http.ResponseWriter, r *http.Request, disabled bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	events, err := h.lifecycle.SetDisabled(auth.UserID(r.Context()), id, disabled)
	if err != nil {
		writeChoreError(w, h.logger, err)
		return
	}

	h.dispatch(events)
	writeJSON(w, http.StatusOK, map[string]bool{"disabled": disabled})
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	events, err := h.lifecycle.DeleteTemplate(auth.UserID(r.Context()), id)
	if err != nil {
		writeChoreError(w, h.logger, err)
		return
	}

	h.dispatch(events)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Complete marks the caller's cycle on the template done, claiming it first
// for pool chores.
func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	rec, events, err := h.lifecycle.Complete(auth.UserID(r.Context()), id)
	if err != nil {
		writeChoreError(w, h.logger, err)
		return
	}

	h.dispatch(events)
	writeJSON(w, http.StatusOK, rec)
}

// Approve grants the reward for a completed cycle. Range rewards need the
// chosen value in the body.
func (h *ChoreHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		RewardValue *int `json:"reward_value"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
	}

	rec, events, err := h.lifecycle.Approve(auth.UserID(r.Context()), id, req.RewardValue)
	if err != nil {
		writeChoreError(w, h.logger, err)
		return
	}

	h.dispatch(events)
	writeJSON(w, http.StatusOK, rec)
}

func (h *ChoreHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	rec, events, err := h.lifecycle.Reject(auth.UserID(r.Context()), id, req.Reason)
	if err != nil {
		writeChoreError(w, h.logger, err)
		return
	}

	h.dispatch(events)
	writeJSON(w, http.StatusOK, rec)
}

// Available lists the chores the calling child can act on right now.
func (h *ChoreHandler) Available(w http.ResponseWriter, r *http.Request) {
	chores, err := h.lifecycle.AvailableForChild(auth.UserID(r.Context()))
	if err != nil {
		writeChoreError(w, h.logger, err)
		return
	}
	if chores == nil {
		chores = []chore.AvailableChore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

// Pending lists completed-but-unapproved cycles for the calling parent.
func (h *ChoreHandler) Pending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.lifecycle.PendingForParent(auth.UserID(r.Context()))
	if err != nil {
		writeChoreError(w, h.logger, err)
		return
	}
	if pending == nil {
		pending = []store.PendingApproval{}
	}
	writeJSON(w, http.StatusOK, pending)
}
