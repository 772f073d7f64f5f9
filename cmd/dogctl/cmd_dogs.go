package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/doglist-api/internal/config"
	"github.com/vyrodovalexey/doglist-api/internal/dogs"
	"github.com/vyrodovalexey/doglist-api/internal/model"
	"github.com/vyrodovalexey/doglist-api/internal/photo"
	"github.com/vyrodovalexey/doglist-api/internal/store"
)

// session is the service stack a single command runs against.
type session struct {
	svc   *dogs.Service
	store store.Store
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession loads config from the environment, applies flag overrides and
// builds the dog service.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if storeDriver != "" {
		cfg.StoreDriver = storeDriver
	}
	if sqlitePath != "" {
		cfg.SQLitePath = sqlitePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	s, err := store.Open(ctx, store.Options{
		Driver:      cfg.StoreDriver,
		SQLitePath:  cfg.SQLitePath,
		PostgresDSN: cfg.PostgresDSN,
	})
	if err != nil {
		return nil, err
	}

	photos, err := photo.NewClient(photo.Options{
		BaseURL:   cfg.PhotoAPIURL,
		Timeout:   cfg.PhotoTimeout,
		RateLimit: cfg.PhotoRateLimit,
	}, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	svc, err := dogs.NewService(ctx, dogs.Deps{Store: s, Photos: photos, Logger: logger})
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	return &session{svc: svc, store: s}, nil
}

// withSession opens a session for cmd and closes it after fn.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, s)
}

func runList(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(_ context.Context, s *session) error {
		printList(cmd.OutOrStdout(), s.svc.Visible(searchText))
		return nil
	})
}

func runAdd(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		dog, err := s.svc.Add(ctx, dogs.AddInput{
			Name:       args[0],
			Breed:      breed,
			ImageRef:   imageRef,
			FetchPhoto: fetchPhoto,
		})
		if dog == nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added #%d %s (%s)\n", dog.ID, dog.Name, dog.Breed)
		return err
	})
}

func runFav(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	return withSession(cmd, func(ctx context.Context, s *session) error {
		if err := s.svc.ToggleFavorite(ctx, id); err != nil {
			return err
		}
		dog, err := s.svc.Get(ctx, id)
		if err != nil {
			return err
		}
		state := "no longer a favorite"
		if dog.IsFavorite {
			state = "now a favorite"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", dog.Name, state)
		return nil
	})
}

func runRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	return withSession(cmd, func(ctx context.Context, s *session) error {
		if err := s.svc.Remove(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed #%d\n", id)
		return nil
	})
}

func runPhoto(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		url, err := s.svc.FetchPhoto(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		if b := photo.BreedFromURL(url); b != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "breed: %s\n", b)
		}
		return nil
	})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", store.ErrInvalidID, raw)
	}
	return id, nil
}

// printList renders the visible list as a table followed by the counters.
func printList(w io.Writer, list model.DogList) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFAV\tNAME\tBREED")
	for _, d := range list.Dogs {
		fav := ""
		if d.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.ID, fav, d.Name, d.Breed)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "dogs: %d  favorites: %d\n", list.Stats.Total, list.Stats.Favorites)
}
