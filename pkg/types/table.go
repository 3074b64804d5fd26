package types

import (
	"context"
	"errors"
)

// Table provides uniform CRUD operations for a single store. Get and GetAll
// return pointers to the concrete entity struct (*Note, *Folder, ...);
// callers type-assert.
type Table interface {
	// Get retrieves the entity stored under key.
	// Returns ErrNotFound if no entity exists.
	Get(ctx context.Context, key string) (any, error)

	// GetAll returns every entity in the store.
	GetAll(ctx context.Context) ([]any, error)

	// Put creates or replaces an entity. The value must be a pointer to the
	// store's entity type; anything else yields ErrInvalidData.
	Put(ctx context.Context, value any) error

	// Remove deletes the entity stored under key, cascading to its children.
	// Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// GetAllByIndex returns entities whose indexed field equals value.
	// Returns ErrUnknownIndex for indexes the store does not define.
	GetAllByIndex(ctx context.Context, index, value string) ([]any, error)
}

// Repository errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidID     = errors.New("invalid entity ID")
	ErrInvalidData   = errors.New("invalid entity data")
	ErrUnknownStore  = errors.New("unknown store")
	ErrUnknownIndex  = errors.New("unknown index")
	ErrLastWorkspace = errors.New("cannot delete the last workspace")
	ErrInvalidType   = errors.New("invalid note type")
	ErrTypeFixed     = errors.New("note type cannot change after creation")
	ErrInvalidRepeat = errors.New("invalid repeat rule")
	ErrInvalidDate   = errors.New("invalid calendar date")
)
