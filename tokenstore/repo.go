package tokenstore

import "context"

// Repo is durable key/value storage for the persisted session, modelled on
// browser localStorage. Multi-key writes and removals are applied as a unit
// by every implementation so the session is never left half written.
type Repo interface {
	// GetItem returns the value for key and whether it was present
	GetItem(ctx context.Context, key string) (string, bool, error)

	// SetItems writes all items together
	SetItems(ctx context.Context, items map[string]string) error

	// RemoveItems deletes all keys together. Missing keys are not an error
	RemoveItems(ctx context.Context, keys ...string) error
}
