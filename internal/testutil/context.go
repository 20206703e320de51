package testutil

import (
	"context"

	"github.com/billforge/billforge/internal/types"
)

// SetupContext creates a context carrying a system actor and request ID
func SetupContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	return types.SetActor(ctx, types.DefaultActorID, types.ActorTypeSystem)
}

// SetupStaffContext creates a context carrying a staff actor
func SetupStaffContext(staffID string) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	return types.SetActor(ctx, staffID, types.ActorTypeStaff)
}
