package entities

import "time"

// Model is one marketplace listing. Identity, descriptive fields, price and
// creator are fixed at creation; only the buyer slot and rating accumulators
// change afterwards.
type Model struct {
	ModelID     uint64
	Name        string
	Description string
	PriceCents  int64
	CreatorID   string
	BuyerID     string
	RatingSum   int64
	RatingCount int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Sold reports whether a purchase has been recorded. The buyer slot is
// written at most once.
func (m Model) Sold() bool {
	return m.BuyerID != ""
}

// AverageRating is the integer-truncated mean of recorded scores, 0 while
// unrated.
func (m Model) AverageRating() int64 {
	if m.RatingCount == 0 {
		return 0
	}
	return m.RatingSum / m.RatingCount
}
