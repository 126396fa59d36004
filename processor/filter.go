package processor

import (
	"strings"

	"wallaflow/models"
)

// ClothingFilter removes listings for riding clothes and personal gear
// that the motorbike category search drags in. Matching is plain
// case-insensitive substring search over title and description
// independently; either field matching excludes the listing.
type ClothingFilter struct {
	keywords []string
}

func NewClothingFilter(keywords []string) *ClothingFilter {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		lowered = append(lowered, strings.ToLower(kw))
	}
	return &ClothingFilter{keywords: lowered}
}

// Matches reports whether the listing belongs to the exclusion class.
func (f *ClothingFilter) Matches(item models.Listing) bool {
	title := strings.ToLower(item.Title())
	description := strings.ToLower(item.Description())

	for _, kw := range f.keywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	for _, kw := range f.keywords {
		if strings.Contains(description, kw) {
			return true
		}
	}
	return false
}

// Apply returns the listings that are not clothing or gear, plus the
// number removed.
func (f *ClothingFilter) Apply(items []models.Listing) ([]models.Listing, int) {
	kept := make([]models.Listing, 0, len(items))
	removed := 0
	for _, item := range items {
		if f.Matches(item) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	return kept, removed
}
