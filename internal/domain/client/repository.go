package client

import "context"

// Repository defines the interface for client persistence operations
type Repository interface {
	Create(ctx context.Context, client *Client) error
	Get(ctx context.Context, id string) (*Client, error)
	Update(ctx context.Context, client *Client) error

	// Delete hard-deletes a client; implementations must reject the call
	// unless DeleteBlockers are clear
	Delete(ctx context.Context, id string) error

	// ListAutodebitable returns active clients with autodebit enabled and
	// a selected payment account
	ListAutodebitable(ctx context.Context) ([]*Client, error)
}
