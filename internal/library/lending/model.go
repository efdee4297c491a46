package lending

import (
	"database/sql"
	"time"
)

const (
	StatusBorrowed = "borrowed"
	StatusReturned = "returned"
)

// Item is the lending view of an items row: just the identity and the
// three counters the reservation logic works on. Every operation
// re-reads it, nothing is cached across store calls.
type Item struct {
	ItemID         string
	TotalCount     int
	AvailableCount int
	BorrowedCount  int
}

// Loan is one row of the loans table, one lending event.
// It transitions borrowed -> returned exactly once; returned_at is set
// iff status is returned.
type Loan struct {
	LoanID     string
	UserID     string
	ItemID     string
	BorrowedAt time.Time
	ReturnedAt sql.NullTime
	Status     string
}
