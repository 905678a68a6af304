// Package identity abstracts the external identity provider on the
// client. The controller only ever sees Credential values and
// classified errors; provider-specific codes never leak past here.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Credential is a short-lived identity token for a signed-in user.
type Credential struct {
	// Token is the raw credential presented to the backend.
	Token string
}

// Provider issues identity credentials.
type Provider interface {
	// SignIn runs the interactive credential flow. A user who backs
	// out yields an Error of KindCancelled.
	SignIn(ctx context.Context) (*Credential, error)
	// CachedCredential returns a currently-held credential without
	// user interaction, or (nil, nil) when none exists.
	CachedCredential(ctx context.Context) (*Credential, error)
	// SignOut discards the provider-side credential.
	SignOut(ctx context.Context) error
}

// ErrorKind is the closed classification of provider failures. All
// provider errors are mapped into exactly one kind at this boundary.
type ErrorKind int

const (
	// KindCancelled: the user backed out of the flow. Silent, non-terminal.
	KindCancelled ErrorKind = iota
	// KindBlocked: the environment prevented the flow; user-actionable.
	KindBlocked
	// KindNetwork: transient transport failure; retryable.
	KindNetwork
	// KindRejected: the provider or backend refused the credential.
	KindRejected
	// KindUnexpected: anything else.
	KindUnexpected
)

// String returns the kind's name for logs and messages.
func (k ErrorKind) String() string {
	switch k {
	case KindCancelled:
		return "cancelled"
	case KindBlocked:
		return "blocked"
	case KindNetwork:
		return "network"
	case KindRejected:
		return "rejected"
	default:
		return "unexpected"
	}
}

// Error is a classified provider failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("identity: %s", e.Kind)
	}
	return fmt.Sprintf("identity: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with the given kind.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Classify maps an arbitrary error to its kind. Errors already
// classified keep their kind; context cancellation counts as the user
// backing out; transport failures are network errors.
func Classify(err error) ErrorKind {
	var idErr *Error
	if errors.As(err, &idErr) {
		return idErr.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindUnexpected
}
