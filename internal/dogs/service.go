package dogs

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/doglist-api/internal/model"
	"github.com/vyrodovalexey/doglist-api/internal/photo"
	"github.com/vyrodovalexey/doglist-api/internal/store"
)

// PhotoProvider supplies a single random photo URL per call.
type PhotoProvider interface {
	RandomPhoto(ctx context.Context) (string, error)
}

// Deps are the collaborators a Service is built from.
type Deps struct {
	Store  store.Store
	Photos PhotoProvider
	Logger *zap.Logger
}

// AddInput describes a dog to add.
type AddInput struct {
	Name     string
	Breed    string
	ImageRef string
	// FetchPhoto asks for a random photo when ImageRef is empty. A failed
	// fetch does not block the add; the dog is stored without a photo.
	FetchPhoto bool
}

// Service applies mutations to the dog collection and answers queries over
// its current snapshot. All writes go through a Service.
type Service struct {
	store      store.Store
	photos     PhotoProvider
	collection *Collection
	logger     *zap.Logger
}

// NewService creates a Service and loads the initial snapshot.
func NewService(ctx context.Context, deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("dogs service: nil store")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:      deps.Store,
		photos:     deps.Photos,
		collection: NewCollection(deps.Store),
		logger:     logger,
	}

	if _, err := s.collection.Refresh(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Ready reports whether the persistence provider answers queries.
func (s *Service) Ready(ctx context.Context) error {
	if _, err := s.store.List(ctx); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}
	return nil
}

// Collection returns the live collection view.
func (s *Service) Collection() *Collection {
	return s.collection
}

// Add validates and stores a new dog. The name must be unique ignoring case;
// otherwise a *DuplicateNameError is returned and nothing changes. When no
// breed is given it is derived from the photo URL, falling back to
// model.UnknownBreed.
func (s *Service) Add(ctx context.Context, in AddInput) (*model.Dog, error) {
	dog := model.Dog{
		Name:     in.Name,
		Breed:    in.Breed,
		ImageRef: in.ImageRef,
	}
	dog.Normalize()

	if err := dog.Validate(); err != nil {
		mutationsTotal.WithLabelValues("add", resultInvalid).Inc()
		return nil, err
	}

	if s.collection.hasName(dog.Name) {
		mutationsTotal.WithLabelValues("add", resultDuplicate).Inc()
		return nil, &DuplicateNameError{Name: dog.Name}
	}

	if dog.ImageRef == "" && in.FetchPhoto {
		dog.ImageRef = s.fetchPhotoFor(ctx, dog.Name)
	}

	if dog.Breed == "" {
		dog.Breed = truncateRunes(photo.BreedFromURL(dog.ImageRef), model.MaxBreedLength)
	}
	if dog.Breed == "" {
		dog.Breed = model.UnknownBreed
	}

	// Derived fields must satisfy the same rules as caller input.
	if err := dog.Validate(); err != nil {
		mutationsTotal.WithLabelValues("add", resultInvalid).Inc()
		return nil, err
	}

	created, err := s.store.Insert(ctx, &dog)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			mutationsTotal.WithLabelValues("add", resultDuplicate).Inc()
			return nil, &DuplicateNameError{Name: dog.Name}
		}
		mutationsTotal.WithLabelValues("add", resultError).Inc()
		return nil, fmt.Errorf("add dog: %w", err)
	}

	mutationsTotal.WithLabelValues("add", resultOK).Inc()
	s.logger.Info("dog added",
		zap.Int64("id", created.ID),
		zap.String("name", created.Name),
		zap.String("breed", created.Breed),
	)

	if _, err := s.collection.Refresh(ctx); err != nil {
		return created, err
	}

	return created, nil
}

// fetchPhotoFor fetches a photo URL for a new dog. A failed fetch or a URL
// the dog could not store yields "".
func (s *Service) fetchPhotoFor(ctx context.Context, name string) string {
	photoURL, err := s.FetchPhoto(ctx)
	if err != nil {
		s.logger.Warn("adding dog without photo", zap.String("name", name), zap.Error(err))
		return ""
	}

	candidate := model.Dog{Name: name, ImageRef: photoURL}
	if err := candidate.Validate(); err != nil {
		s.logger.Warn("discarding fetched photo",
			zap.String("name", name),
			zap.String("image_ref", photoURL),
			zap.Error(err),
		)
		return ""
	}

	return photoURL
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Remove deletes the dog with id. Removing an unknown id is a no-op.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		mutationsTotal.WithLabelValues("remove", resultError).Inc()
		return fmt.Errorf("remove dog: %w", err)
	}

	mutationsTotal.WithLabelValues("remove", resultOK).Inc()
	s.logger.Info("dog removed", zap.Int64("id", id))

	_, err := s.collection.Refresh(ctx)
	return err
}

// ToggleFavorite flips the favorite flag of the dog with id. Toggling an
// unknown id is a no-op.
func (s *Service) ToggleFavorite(ctx context.Context, id int64) error {
	if err := s.store.ToggleFavorite(ctx, id); err != nil {
		mutationsTotal.WithLabelValues("toggle_favorite", resultError).Inc()
		return fmt.Errorf("toggle favorite: %w", err)
	}

	mutationsTotal.WithLabelValues("toggle_favorite", resultOK).Inc()
	s.logger.Debug("favorite toggled", zap.Int64("id", id))

	_, err := s.collection.Refresh(ctx)
	return err
}

// FetchPhoto asks the photo provider for a random photo. Failures are
// returned as *FetchError.
func (s *Service) FetchPhoto(ctx context.Context) (string, error) {
	if s.photos == nil {
		return "", &FetchError{Err: errors.New("no photo provider configured")}
	}

	photoURL, err := s.photos.RandomPhoto(ctx)
	if err != nil {
		return "", &FetchError{Err: err}
	}

	return photoURL, nil
}

// Get returns the dog with id from the current snapshot.
func (s *Service) Get(_ context.Context, id int64) (*model.Dog, error) {
	dog, ok := s.collection.find(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &dog, nil
}

// Visible returns the visible list for searchText together with counters
// computed over the whole collection.
func (s *Service) Visible(searchText string) model.DogList {
	snap := s.collection.Snapshot()
	return ListFromSnapshot(snap, searchText)
}

// Stats returns the counters of the current snapshot.
func (s *Service) Stats() model.Stats {
	return Stats(s.collection.Snapshot().Dogs)
}

// Submit adds a dog using the photo the flow fetched. Without a successful
// fetch the dog is added with no photo.
func (s *Service) Submit(ctx context.Context, flow *PhotoFlow, name, breed string) (*model.Dog, error) {
	var imageRef string
	if status := flow.Status(); status.State == FlowSuccess {
		imageRef = status.Photo
	}

	return s.Add(ctx, AddInput{Name: name, Breed: breed, ImageRef: imageRef})
}

// ListFromSnapshot builds the visible-list payload for one snapshot.
func ListFromSnapshot(snap Snapshot, searchText string) model.DogList {
	return model.DogList{
		Query:   searchText,
		Dogs:    VisibleList(snap.Dogs, searchText),
		Stats:   Stats(snap.Dogs),
		Version: snap.Version,
	}
}
