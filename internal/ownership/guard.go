// Package ownership holds the authorization check run before any operation on a
// user-owned resource.
package ownership

import (
	"context"

	"github.com/sebuszqo/TaxManager/internal/apperrors"
	"github.com/sebuszqo/TaxManager/internal/session"
)

// Resource is anything owned by exactly one user.
type Resource interface {
	OwnerID() string
}

type Guard interface {
	Authorize(ctx context.Context, p session.Principal, r Resource) error
}

// OwnerGuard allows access only to the user that owns the resource.
type OwnerGuard struct{}

func NewOwnerGuard() OwnerGuard {
	return OwnerGuard{}
}

func (OwnerGuard) Authorize(_ context.Context, p session.Principal, r Resource) error {
	if r == nil {
		return apperrors.ErrNotFound
	}
	if p.UserID == "" || r.OwnerID() != p.UserID {
		return apperrors.ErrForbidden
	}
	return nil
}
