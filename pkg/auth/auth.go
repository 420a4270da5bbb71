package auth

import (
	"context"
)

// Caller identity is established upstream (gateway). The service trusts
// the headers as given and never authenticates.
const (
	XUserIDHeader    = "X-User-Id"
	XUserEmailHeader = "X-User-Email"
	XUserRoleHeader  = "X-User-Role"

	RoleStaff  = "staff"
	RoleMember = "member"
)

type Caller struct {
	ID      int
	Email   string
	IsStaff bool
}

type callerKey struct{}

func SetCallerContext(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(Caller)
	return caller, ok
}
