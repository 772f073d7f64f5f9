package dogs

import (
	"strings"

	"github.com/vyrodovalexey/doglist-api/internal/model"
)

// VisibleList derives the list shown to the user.
//
// With a non-blank search text it returns, in collection order, every dog
// whose name or breed contains the text ignoring case. With a blank search
// text it returns all dogs with favorites first, keeping the relative order
// inside both groups. The input is never modified.
func VisibleList(collection []model.Dog, searchText string) []model.Dog {
	query := strings.ToLower(strings.TrimSpace(searchText))
	if query != "" {
		return filter(collection, query)
	}
	return favoritesFirst(collection)
}

func filter(collection []model.Dog, query string) []model.Dog {
	out := make([]model.Dog, 0)
	for _, dog := range collection {
		if strings.Contains(strings.ToLower(dog.Name), query) ||
			strings.Contains(strings.ToLower(dog.Breed), query) {
			out = append(out, dog)
		}
	}
	return out
}

func favoritesFirst(collection []model.Dog) []model.Dog {
	out := make([]model.Dog, 0, len(collection))
	for _, dog := range collection {
		if dog.IsFavorite {
			out = append(out, dog)
		}
	}
	for _, dog := range collection {
		if !dog.IsFavorite {
			out = append(out, dog)
		}
	}
	return out
}

// Stats counts all dogs and favorites in the collection.
func Stats(collection []model.Dog) model.Stats {
	stats := model.Stats{Total: len(collection)}
	for _, dog := range collection {
		if dog.IsFavorite {
			stats.Favorites++
		}
	}
	return stats
}
