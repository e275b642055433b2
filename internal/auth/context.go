package auth

import (
	"context"

	"github.com/fernwood/hearth/internal/model"
)

type contextKey struct{}

// AuthContext identifies the authenticated caller for every privileged
// operation: who they are, which family they act in, and their role.
type AuthContext struct {
	UID      string
	FamilyID string
	Role     model.Role
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.UID
}

func FamilyID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.FamilyID
}
