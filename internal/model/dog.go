// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// UnknownBreed is stored when a dog is added without a breed and none can be
// derived from its photo.
const UnknownBreed = "unknown breed"

// Validation constants.
const (
	MaxNameLength     = 100
	MaxBreedLength    = 100
	MaxImageRefLength = 2048
)

// Validation errors for Dog.
var (
	ErrEmptyName       = errors.New("name cannot be empty")
	ErrNameTooLong     = errors.New("name cannot exceed 100 characters")
	ErrBreedTooLong    = errors.New("breed cannot exceed 100 characters")
	ErrImageRefTooLong = errors.New("image reference cannot exceed 2048 characters")
	ErrImageRefScheme  = errors.New("image reference must be an http or https URL")
)

// ValidationError reports which field of a Dog failed validation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Dog is a single entry of the personal dog list.
type Dog struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Breed      string    `json:"breed"`
	ImageRef   string    `json:"image_ref"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
}

// Normalize trims surrounding whitespace from the text fields.
func (d *Dog) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Breed = strings.TrimSpace(d.Breed)
	d.ImageRef = strings.TrimSpace(d.ImageRef)
}

// Validate checks if the Dog has valid field values. It expects a normalized
// Dog.
func (d *Dog) Validate() error {
	if d.Name == "" {
		return &ValidationError{Field: "name", Err: ErrEmptyName}
	}

	if utf8.RuneCountInString(d.Name) > MaxNameLength {
		return &ValidationError{Field: "name", Err: ErrNameTooLong}
	}

	if utf8.RuneCountInString(d.Breed) > MaxBreedLength {
		return &ValidationError{Field: "breed", Err: ErrBreedTooLong}
	}

	if len(d.ImageRef) > MaxImageRefLength {
		return &ValidationError{Field: "image_ref", Err: ErrImageRefTooLong}
	}

	if d.ImageRef != "" &&
		!strings.HasPrefix(d.ImageRef, "https://") &&
		!strings.HasPrefix(d.ImageRef, "http://") {
		return &ValidationError{Field: "image_ref", Err: ErrImageRefScheme}
	}

	return nil
}

// NameKey returns the comparison key used for name uniqueness and lookups.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Stats holds the list counters shown next to the dog list.
type Stats struct {
	Total     int `json:"total"`
	Favorites int `json:"favorites"`
}

// DogList is the payload returned for a visible-list query.
type DogList struct {
	Query   string `json:"query"`
	Dogs    []Dog  `json:"dogs"`
	Stats   Stats  `json:"stats"`
	Version uint64 `json:"version"`
}

// CreateDogRequest is the request body for adding a dog.
type CreateDogRequest struct {
	Name       string `json:"name"`
	Breed      string `json:"breed,omitempty"`
	ImageRef   string `json:"image_ref,omitempty"`
	FetchPhoto bool   `json:"fetch_photo,omitempty"`
}

// SubmitFlowRequest is the request body for finishing an add flow.
type SubmitFlowRequest struct {
	Name  string `json:"name"`
	Breed string `json:"breed,omitempty"`
}

// Photo is a random photo returned by the photo provider.
type Photo struct {
	URL   string `json:"url"`
	Breed string `json:"breed,omitempty"`
}

// FlowView is the externally visible state of an add flow.
type FlowView struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Photo *Photo `json:"photo,omitempty"`
	Error string `json:"error,omitempty"`
}

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
