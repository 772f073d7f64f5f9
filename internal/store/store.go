// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/doglist-api/internal/model"
)

// Store errors.
var (
	ErrNotFound      = errors.New("dog not found")
	ErrAlreadyExists = errors.New("dog with this name already exists")
	ErrInvalidID     = errors.New("invalid dog ID")
	ErrNilDog        = errors.New("dog cannot be nil")
)

// Store is the persistence provider for the dog collection.
//
// Implementations enforce name uniqueness (case-insensitive, see
// model.NameKey) atomically on Insert. Delete and ToggleFavorite treat an
// unknown ID as a no-op.
type Store interface {
	// List returns all dogs ordered by ascending ID.
	List(ctx context.Context) ([]model.Dog, error)

	// Get retrieves a dog by its ID.
	Get(ctx context.Context, id int64) (*model.Dog, error)

	// Insert adds a new dog and returns it with the assigned ID.
	Insert(ctx context.Context, dog *model.Dog) (*model.Dog, error)

	// Delete removes a dog by its ID.
	Delete(ctx context.Context, id int64) error

	// ToggleFavorite flips the favorite flag of a dog.
	ToggleFavorite(ctx context.Context, id int64) error

	// Close releases resources held by the store.
	Close() error
}
