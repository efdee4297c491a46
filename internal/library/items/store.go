package items

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const itemColumns = `item_id, title, kind, author_or_producer, year, language, genre, image,
	total_count, available_count, borrowed_count, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var it Item
	err := row.Scan(
		&it.ItemID, &it.Title, &it.Kind, &it.AuthorOrProducer, &it.Year,
		&it.Language, &it.Genre, &it.Image,
		&it.TotalCount, &it.AvailableCount, &it.BorrowedCount,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) Insert(ctx context.Context, it *Item) error {
	const q = `
	INSERT INTO items
	(item_id, title, kind, author_or_producer, year, language, genre, image,
	 total_count, available_count, borrowed_count, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		it.ItemID, it.Title, it.Kind, it.AuthorOrProducer, it.Year,
		it.Language, it.Genre, it.Image,
		it.TotalCount, it.AvailableCount, it.BorrowedCount,
		it.CreatedAt, it.UpdatedAt,
	)
	return err
}

func (s *Store) GetByID(ctx context.Context, itemID string) (*Item, error) {
	q := `SELECT ` + itemColumns + ` FROM items WHERE item_id = ?`
	it, err := scanItem(s.db.QueryRowContext(ctx, q, itemID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound("item not found")
		}
		return nil, err
	}
	return it, nil
}

func (s *Store) List(ctx context.Context, f SearchQuery) ([]*Item, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + itemColumns + ` FROM items WHERE 1=1`)

	args := []any{}
	if f.Kind != "" {
		sb.WriteString(` AND kind = ?`)
		args = append(args, f.Kind)
	}
	if f.Search != "" {
		sb.WriteString(` AND (title LIKE ? OR author_or_producer LIKE ?)`)
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}
	if f.Available != nil {
		if *f.Available {
			sb.WriteString(` AND available_count > 0`)
		} else {
			sb.WriteString(` AND available_count = 0`)
		}
	}
	sb.WriteString(` ORDER BY created_at DESC`)

	return s.queryItems(ctx, sb.String(), args...)
}

// BorrowedBooks lists books with at least one active loan, by title.
func (s *Store) BorrowedBooks(ctx context.Context) ([]*Item, error) {
	q := `SELECT ` + itemColumns + ` FROM items WHERE kind = ? AND borrowed_count > 0 ORDER BY title ASC`
	return s.queryItems(ctx, q, KindBook)
}

func (s *Store) queryItems(ctx context.Context, q string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ResizeCounts rewrites total_count/available_count only while
// borrowed_count still equals the value the caller observed, so a resize
// can never race a concurrent borrow/return into a broken counter set.
// Returns false when the guard no longer matched.
func (s *Store) ResizeCounts(ctx context.Context, itemID string, newTotal, expectedBorrowed int, now time.Time) (bool, error) {
	const q = `
	UPDATE items
	SET total_count = ?, available_count = ?, updated_at = ?
	WHERE item_id = ? AND borrowed_count = ?`
	res, err := s.db.ExecContext(ctx, q,
		newTotal, newTotal-expectedBorrowed, now, itemID, expectedBorrowed,
	)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}
