package types

// Status is a type for the lifecycle status of a persisted record.
// This tracks soft-deletion and should be reflected in the database schema.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)
