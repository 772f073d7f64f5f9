package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vyrodovalexey/doglist-api/internal/model"
)

// MemoryStore implements Store interface with in-memory storage.
type MemoryStore struct {
	mu     sync.RWMutex
	dogs   map[int64]model.Dog
	names  map[string]int64
	nextID int64
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		dogs:   make(map[int64]model.Dog),
		names:  make(map[string]int64),
		nextID: 1,
	}
}

// List returns all dogs ordered by ascending ID.
func (s *MemoryStore) List(ctx context.Context) ([]model.Dog, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list dogs: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dogs := make([]model.Dog, 0, len(s.dogs))
	for _, dog := range s.dogs {
		dogs = append(dogs, dog)
	}
	sort.Slice(dogs, func(i, j int) bool { return dogs[i].ID < dogs[j].ID })

	return dogs, nil
}

// Get retrieves a dog by its ID.
func (s *MemoryStore) Get(ctx context.Context, id int64) (*model.Dog, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get dog: %w", ctx.Err())
	default:
	}

	if id <= 0 {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dog, exists := s.dogs[id]
	if !exists {
		return nil, ErrNotFound
	}

	return &dog, nil
}

// Insert adds a new dog and returns it with the assigned ID.
func (s *MemoryStore) Insert(ctx context.Context, dog *model.Dog) (*model.Dog, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("insert dog: %w", ctx.Err())
	default:
	}

	if dog == nil {
		return nil, ErrNilDog
	}

	key := model.NameKey(dog.Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.names[key]; taken {
		return nil, ErrAlreadyExists
	}

	newDog := model.Dog{
		ID:         s.nextID,
		Name:       dog.Name,
		Breed:      dog.Breed,
		ImageRef:   dog.ImageRef,
		IsFavorite: dog.IsFavorite,
		CreatedAt:  time.Now().UTC(),
	}
	s.nextID++

	s.dogs[newDog.ID] = newDog
	s.names[key] = newDog.ID

	return &newDog, nil
}

// Delete removes a dog by its ID.
func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete dog: %w", ctx.Err())
	default:
	}

	if id <= 0 {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dog, exists := s.dogs[id]
	if !exists {
		return nil
	}

	delete(s.names, model.NameKey(dog.Name))
	delete(s.dogs, id)

	return nil
}

// ToggleFavorite flips the favorite flag of a dog.
func (s *MemoryStore) ToggleFavorite(ctx context.Context, id int64) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("toggle favorite: %w", ctx.Err())
	default:
	}

	if id <= 0 {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dog, exists := s.dogs[id]
	if !exists {
		return nil
	}

	dog.IsFavorite = !dog.IsFavorite
	s.dogs[id] = dog

	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
