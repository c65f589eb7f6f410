package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/gatepass/auth"
	"github.com/diewo77/gatepass/httpx"
	"github.com/diewo77/gatepass/internal/authz"
	"github.com/diewo77/gatepass/internal/gatepass"
	"github.com/diewo77/gatepass/internal/identity"
	"github.com/diewo77/gatepass/internal/models"
	"github.com/diewo77/gatepass/validation"
)

// CallerResolver maps an authenticated account to an authorization caller.
type CallerResolver interface {
	Resolve(ctx context.Context, accountID uint) (*authz.Caller, error)
}

type GatePassHandler struct {
	svc     *gatepass.Service
	callers CallerResolver
	log     *slog.Logger
}

func NewGatePassHandler(svc *gatepass.Service, callers CallerResolver, log *slog.Logger) *GatePassHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GatePassHandler{svc: svc, callers: callers, log: log}
}

// Register mounts the gate pass routes on mux. wrap is applied to every
// route, typically the authentication middleware.
func (h *GatePassHandler) Register(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	mux.Handle("POST /v1/permissions/{id}/gate-out", wrap(http.HandlerFunc(h.IssueGateOut)))
	mux.Handle("POST /v1/permissions/{id}/gate-in", wrap(http.HandlerFunc(h.IssueGateIn)))
	mux.Handle("GET /v1/permissions/{id}/gate-pass", wrap(http.HandlerFunc(h.Status)))
	mux.Handle("POST /v1/gate-passes/verify", wrap(http.HandlerFunc(h.Verify)))
}

type issueResponse struct {
	Secret       string           `json:"secret"`
	Direction    models.Direction `json:"direction"`
	PermissionID uint             `json:"permission_id"`
	IssuedAt     time.Time        `json:"issued_at"`
}

type verifyRequest struct {
	Secret string `json:"secret"`
}

type verifyResponse struct {
	Direction    models.Direction `json:"direction"`
	VerifiedAt   time.Time        `json:"verified_at"`
	PermissionID uint             `json:"permission_id"`
	VerifiedBy   uint             `json:"verified_by"`
}

func (h *GatePassHandler) IssueGateOut(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, h.svc.IssueGateOut)
}

func (h *GatePassHandler) IssueGateIn(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, h.svc.IssueGateIn)
}

type issueFunc func(context.Context, *authz.Caller, uint) (*gatepass.Issued, error)

func (h *GatePassHandler) issue(w http.ResponseWriter, r *http.Request, fn issueFunc) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := permissionID(w, r)
	if !ok {
		return
	}
	out, err := fn(r.Context(), caller, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// the secret must not be cached by intermediaries
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, http.StatusCreated, issueResponse{
		Secret:       out.Secret,
		Direction:    out.Direction,
		PermissionID: out.PermissionID,
		IssuedAt:     out.IssuedAt,
	})
}

func (h *GatePassHandler) Verify(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req verifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("secret", req.Secret, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation", v)
		return
	}
	// A well-formed body with a secret of the wrong shape is a scan of
	// something that is not ours: unknown-token, not a validation error.
	res, err := h.svc.Verify(r.Context(), caller, req.Secret)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, verifyResponse{
		Direction:    res.Direction,
		VerifiedAt:   res.VerifiedAt,
		PermissionID: res.PermissionID,
		VerifiedBy:   res.VerifiedBy,
	})
}

func (h *GatePassHandler) Status(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := permissionID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Status(r.Context(), caller, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

// caller resolves the authenticated account, answering 401 when there is none.
func (h *GatePassHandler) caller(w http.ResponseWriter, r *http.Request) (*authz.Caller, bool) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return nil, false
	}
	c, err := h.callers.Resolve(r.Context(), accountID)
	if errors.Is(err, identity.ErrUnknownAccount) {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return nil, false
	}
	if err != nil {
		h.log.ErrorContext(r.Context(), "resolve caller", "account_id", accountID, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return nil, false
	}
	return c, true
}

func permissionID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	v := validation.Violations{}
	if err != nil {
		v["id"] = "invalid"
	} else {
		validation.PositiveID("id", id, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation", v)
		return 0, false
	}
	return uint(id), true
}

// writeError renders a service error. Gate pass failures carry their kind
// as the error code; anything else is an internal error already logged by
// the service.
func (h *GatePassHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *gatepass.Error
	if !errors.As(err, &e) {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	var details any
	if e.Kind == gatepass.KindTooEarly {
		details = map[string]int{"wait_minutes": e.WaitMinutes}
	}
	httpx.JSONError(w, e.StatusCode(), string(e.Kind), details)
}
