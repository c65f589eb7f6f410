package gatepass

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/diewo77/gatepass/internal/authz"
	"github.com/diewo77/gatepass/internal/models"
)

// Kind names a gate pass failure. The value is what clients see in the
// "error" field of a response.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindNotOwner        Kind = "not-owner"
	KindNotVerifier     Kind = "not-verifier"
	KindNotFound        Kind = "not-found"
	KindUnknownToken    Kind = "unknown-token"
	KindInvalidState    Kind = "invalid-state"
	KindAlreadyVerified Kind = "already-verified"
	KindTooEarly        Kind = "too-early"
)

// Category groups kinds by how a caller should react to them.
type Category string

const (
	CategoryAuthorization Category = "authorization"
	CategoryPrecondition  Category = "precondition"
	CategoryBusiness      Category = "business"
)

// Sentinels for errors.Is. An *Error matches a sentinel of the same Kind.
var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrNotOwner        = &Error{Kind: KindNotOwner}
	ErrNotVerifier     = &Error{Kind: KindNotVerifier}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrUnknownToken    = &Error{Kind: KindUnknownToken}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrAlreadyVerified = &Error{Kind: KindAlreadyVerified}
	ErrTooEarly        = &Error{Kind: KindTooEarly}
)

// ErrConsistency reports a state the store guards should have made
// impossible. It fails the request it occurs in and nothing else.
var ErrConsistency = errors.New("gatepass: consistency violation")

// Error is an expected, client-facing gate pass failure.
type Error struct {
	Kind         Kind
	Op           authz.Operation
	PermissionID uint
	Direction    models.Direction
	// WaitMinutes is set for KindTooEarly: whole minutes until gate-in may be requested.
	WaitMinutes int
}

func (e *Error) Error() string {
	msg := "gatepass"
	if e.Op != "" {
		msg += " " + string(e.Op)
	}
	if e.PermissionID != 0 {
		msg += fmt.Sprintf(" permission %d", e.PermissionID)
	}
	if e.Direction != "" {
		msg += " " + string(e.Direction)
	}
	msg += ": " + string(e.Kind)
	if e.Kind == KindTooEarly {
		msg += fmt.Sprintf(" (wait %d min)", e.WaitMinutes)
	}
	return msg
}

// Is matches on Kind only, so errors.Is(err, ErrTooEarly) ignores the payload.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Category reports whether the failure is a denial, caller misuse or stale
// data, or an expected business outcome.
func (e *Error) Category() Category {
	switch e.Kind {
	case KindUnauthenticated, KindNotOwner, KindNotVerifier:
		return CategoryAuthorization
	case KindTooEarly, KindAlreadyVerified:
		return CategoryBusiness
	default:
		return CategoryPrecondition
	}
}

// StatusCode maps the failure to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotOwner, KindNotVerifier:
		return http.StatusForbidden
	case KindNotFound, KindUnknownToken:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusConflict
	case KindTooEarly:
		return http.StatusBadRequest
	case KindAlreadyVerified:
		// a replayed scan is a bad request; re-requesting a used pass conflicts
		if e.Op == authz.OpVerify {
			return http.StatusBadRequest
		}
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, op authz.Operation, id uint, dir models.Direction) *Error {
	return &Error{Kind: kind, Op: op, PermissionID: id, Direction: dir}
}

// denial converts a policy decision into the matching error.
func denial(d authz.Decision, op authz.Operation, id uint) *Error {
	switch d.Reason {
	case authz.ReasonUnauthenticated:
		return newError(KindUnauthenticated, op, id, "")
	case authz.ReasonNotVerifier:
		return newError(KindNotVerifier, op, id, "")
	default:
		return newError(KindNotOwner, op, id, "")
	}
}
