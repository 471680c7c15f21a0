// Package http provides the HTTP handlers of the lpbridge account API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/lpbridge/internal/models"
	"github.com/atinyakov/lpbridge/internal/service"
)

// AccountService defines the account operations required by the
// AccountHandler. *service.AccountService implements it.
type AccountService interface {
	List(ctx context.Context, filter string) ([]models.Account, error)
	Password(ctx context.Context, id models.AccountIdentifier) (string, error)
	SetPassword(ctx context.Context, req models.SetPasswordRequest) error
	Delete(ctx context.Context, id models.AccountIdentifier) error
	Add(ctx context.Context, req models.AddRequest) (models.Account, error)
	Status(ctx context.Context) service.Status
	ResetErrors()
	Operations(ctx context.Context, limit int, names []string) ([]models.Operation, error)
}

// AccountHandler handles the account endpoints.
type AccountHandler struct {
	Service AccountService
	Log     *zap.Logger
}

type passwordBody struct {
	Password string `json:"password"`
}

// Status handles GET /api/status.
func (h *AccountHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Status(r.Context()))
}

// List handles GET /api/accounts. The optional "filter" query parameter
// restricts the result to matching accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Service.List(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// Add handles POST /api/accounts and responds with the created account.
func (h *AccountHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req models.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	acc, err := h.Service.Add(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

// Password handles GET /api/accounts/{id}/password.
func (h *AccountHandler) Password(w http.ResponseWriter, r *http.Request) {
	pw, err := h.Service.Password(r.Context(), accountID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, passwordBody{Password: pw})
}

// SetPassword handles PUT /api/accounts/{id}/password.
func (h *AccountHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var body passwordBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	req := models.SetPasswordRequest{AccountID: accountID(r), NewPassword: body.Password}
	if err := h.Service.SetPassword(r.Context(), req); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/accounts/{id}.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), accountID(r)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reset handles POST /api/reset. It lets a previously missing lpass be
// probed again.
func (h *AccountHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.Service.ResetErrors()
	w.WriteHeader(http.StatusNoContent)
}

// Operations handles GET /api/operations?limit=N&name=list&name=add.
func (h *AccountHandler) Operations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var limit int
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	ops, err := h.Service.Operations(r.Context(), limit, q["name"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

func accountID(r *http.Request) models.AccountIdentifier {
	return models.AccountIdentifier(chi.URLParam(r, "id"))
}

func (h *AccountHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrAuditDisabled):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrOperationFailed):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		if h.Log != nil {
			h.Log.Error("request failed", zap.Error(err))
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
