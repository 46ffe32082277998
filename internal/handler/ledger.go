package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mhutchens/chorebank/internal/auth"
	"github.com/mhutchens/chorebank/internal/model"
	"github.com/mhutchens/chorebank/internal/store"
)

type LedgerHandler struct {
	ledger *store.LedgerStore
	users  *store.UserStore
	logger *slog.Logger
}

func NewLedgerHandler(ledger *store.LedgerStore, users *store.UserStore, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, users: users, logger: logger}
}

// Balances returns every child's current points balance, highest first.
func (h *LedgerHandler) Balances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.ledger.ListBalances(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list balances", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list balances"})
		return
	}
	if balances == nil {
		balances = []model.Balance{}
	}
	writeJSON(w, http.StatusOK, balances)
}

// History returns a child's ledger entries. Children may only read their
// own; parents may read any child in the family.
func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	child, err := h.users.GetByID(childID)
	if err != nil {
		h.logger.Error("get child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return
	}
	if child == nil || child.FamilyID != auth.FamilyID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}
	if !auth.IsParent(r.Context()) && child.ID != auth.UserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	entries, err := h.ledger.ListByChild(childID)
	if err != nil {
		h.logger.Error("list ledger entries", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list ledger entries"})
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

const defaultActivityLimit = 50

type ActivityHandler struct {
	activity *store.ActivityStore
	logger   *slog.Logger
}

func NewActivityHandler(activity *store.ActivityStore, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity, logger: logger}
}

// Feed returns the family's recent activity, newest first. The limit query
// parameter caps the page size.
func (h *ActivityHandler) Feed(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := h.activity.ListByFamily(auth.FamilyID(r.Context()), limit)
	if err != nil {
		h.logger.Error("list activity", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list activity"})
		return
	}
	if entries == nil {
		entries = []model.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
