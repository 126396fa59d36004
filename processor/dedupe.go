package processor

import "wallaflow/models"

// RemoveDuplicates returns the first occurrence of every listing id in
// input order plus the number of discarded listings. A listing without a
// usable id is never emitted; it counts as a duplicate so the reported
// numbers still add up to the input length.
func RemoveDuplicates(items []models.Listing) ([]models.Listing, int) {
	seen := make(map[string]struct{}, len(items))
	unique := make([]models.Listing, 0, len(items))
	removed := 0

	for _, item := range items {
		id := item.ID()
		if id == "" {
			removed++
			continue
		}
		if _, dup := seen[id]; dup {
			removed++
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, item)
	}

	return unique, removed
}
