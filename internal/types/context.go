package types

import "context"

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxActorID   ContextKey = "ctx_actor_id"
	CtxActorType ContextKey = "ctx_actor_type"

	// DefaultActorID is used for automation-driven writes
	DefaultActorID = "system"
)

// ActorType distinguishes who initiated an operation. Internal-use-only
// coupons and manual overrides are gated on staff-initiated flows.
type ActorType string

const (
	ActorTypeStaff  ActorType = "staff"
	ActorTypeClient ActorType = "client"
	ActorTypeSystem ActorType = "system"
)

func GetActorID(ctx context.Context) string {
	if actorID, ok := ctx.Value(CtxActorID).(string); ok {
		return actorID
	}
	return DefaultActorID
}

func GetActorType(ctx context.Context) ActorType {
	if actorType, ok := ctx.Value(CtxActorType).(ActorType); ok {
		return actorType
	}
	return ActorTypeSystem
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// IsStaffInitiated reports whether the operation was started by a staff
// member (automation counts as staff for internal-only coupon purposes
// only when explicitly marked).
func IsStaffInitiated(ctx context.Context) bool {
	return GetActorType(ctx) == ActorTypeStaff
}

// SetActor sets the acting user and type on the context
func SetActor(ctx context.Context, actorID string, actorType ActorType) context.Context {
	ctx = context.WithValue(ctx, CtxActorID, actorID)
	return context.WithValue(ctx, CtxActorType, actorType)
}
