package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vyrodovalexey/doglist-api/internal/model"
)

// dialect captures the differences between the SQL backends.
type dialect struct {
	name              string
	schema            []string
	numberedParams    bool
	isUniqueViolation func(error) bool
}

// SQLStore implements Store on top of database/sql. The dogs table carries a
// unique name_key column so the uniqueness check and the write happen in one
// statement.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("apply %s schema: %w", d.name, err)
		}
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// rebind rewrites '?' placeholders for backends that use numbered params.
func (s *SQLStore) rebind(query string) string {
	if !s.dialect.numberedParams {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const selectDogColumns = `SELECT id, name, breed, image_ref, is_favorite, created_at FROM dogs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDog(row rowScanner) (model.Dog, error) {
	var (
		dog       model.Dog
		createdAt int64
	)
	if err := row.Scan(&dog.ID, &dog.Name, &dog.Breed, &dog.ImageRef, &dog.IsFavorite, &createdAt); err != nil {
		return model.Dog{}, err
	}
	dog.CreatedAt = time.Unix(0, createdAt).UTC()
	return dog, nil
}

// List returns all dogs ordered by ascending ID.
func (s *SQLStore) List(ctx context.Context) ([]model.Dog, error) {
	rows, err := s.db.QueryContext(ctx, selectDogColumns+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list dogs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	dogs := make([]model.Dog, 0)
	for rows.Next() {
		dog, err := scanDog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dog: %w", err)
		}
		dogs = append(dogs, dog)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dogs: %w", err)
	}

	return dogs, nil
}

// Get retrieves a dog by its ID.
func (s *SQLStore) Get(ctx context.Context, id int64) (*model.Dog, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	row := s.db.QueryRowContext(ctx, s.rebind(selectDogColumns+` WHERE id = ?`), id)
	dog, err := scanDog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get dog: %w", err)
	}

	return &dog, nil
}

// Insert adds a new dog and returns it with the assigned ID.
func (s *SQLStore) Insert(ctx context.Context, dog *model.Dog) (*model.Dog, error) {
	if dog == nil {
		return nil, ErrNilDog
	}

	newDog := model.Dog{
		Name:       dog.Name,
		Breed:      dog.Breed,
		ImageRef:   dog.ImageRef,
		IsFavorite: dog.IsFavorite,
		CreatedAt:  time.Now().UTC(),
	}

	row := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO dogs (name, name_key, breed, image_ref, is_favorite, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		newDog.Name,
		model.NameKey(newDog.Name),
		newDog.Breed,
		newDog.ImageRef,
		newDog.IsFavorite,
		newDog.CreatedAt.UnixNano(),
	)
	if err := row.Scan(&newDog.ID); err != nil {
		if s.dialect.isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert dog: %w", err)
	}

	return &newDog, nil
}

// Delete removes a dog by its ID.
func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM dogs WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete dog: %w", err)
	}

	return nil
}

// ToggleFavorite flips the favorite flag of a dog.
func (s *SQLStore) ToggleFavorite(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}

	if _, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE dogs SET is_favorite = NOT is_favorite WHERE id = ?`), id,
	); err != nil {
		return fmt.Errorf("toggle favorite: %w", err)
	}

	return nil
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for tests.
func (s *SQLStore) DB() *sql.DB { return s.db }
