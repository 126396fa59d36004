package processor

import "wallaflow/models"

// FilterKnown drops listings whose id is already present in the day's
// dataset, making repeated runs within the same day idempotent with
// respect to the output file. Returns the new listings and the number
// filtered away.
func FilterKnown(items []models.Listing, existing map[string]struct{}) ([]models.Listing, int) {
	fresh := make([]models.Listing, 0, len(items))
	known := 0
	for _, item := range items {
		if _, saved := existing[item.ID()]; saved {
			known++
			continue
		}
		fresh = append(fresh, item)
	}
	return fresh, known
}
