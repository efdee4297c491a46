package items

import "time"

const (
	KindBook  = "book"
	KindMovie = "movie"
)

// Item is one row of the items table. The three counters always satisfy
// available_count + borrowed_count == total_count; they are mutated only
// by the lending operations and the admin resize.
type Item struct {
	ItemID           string
	Title            string
	Kind             string
	AuthorOrProducer string
	Year             int
	Language         string
	Genre            string // comma-separated
	Image            string
	TotalCount       int
	AvailableCount   int
	BorrowedCount    int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
