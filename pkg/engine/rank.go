package engine

import "sort"

// span is one account's posts as an index range into the shared backing
// slice. Partitioning once into spans keeps the estimator from ever
// reading across account boundaries.
type span struct {
	start, end int // half-open [start, end)
}

// rank partitions posts by account and assigns post_number 1..k per
// account, 1 = most recent by posted_at. The sort is stable, so posts
// with equal timestamps keep their input order. The returned slice is
// ordered by account and ascending post_number, and the spans index it.
func rank(posts []Post) ([]Post, []span) {
	ordered := make([]Post, len(posts))
	copy(ordered, posts)

	// Most recent first within each account. After this pass the slice
	// is already in ascending post_number order per account, which is
	// the order the estimator walks.
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].AccountID != ordered[j].AccountID {
			return ordered[i].AccountID < ordered[j].AccountID
		}
		return ordered[i].PostedAt.After(ordered[j].PostedAt)
	})

	var spans []span
	start := 0
	for i := range ordered {
		ordered[i].PostNumber = i - start + 1
		ordered[i].AvgLast50 = nil
		ordered[i].Viral = false
		if i+1 == len(ordered) || ordered[i+1].AccountID != ordered[i].AccountID {
			spans = append(spans, span{start: start, end: i + 1})
			start = i + 1
		}
	}
	return ordered, spans
}
