package lending

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"biblio-backend/internal/platform/db"
)

// Store is the MySQL-backed inventory store. Correctness of the whole
// reservation flow rests on ReserveCopy and FinalizeReturn: each is a
// single conditional UPDATE whose predicate is evaluated against the
// freshest stored row, which MySQL serializes per row. RowsAffected
// tells the caller whether the predicate still held when the write
// landed.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) GetItem(ctx context.Context, itemID string) (*Item, error) {
	const q = `SELECT item_id, total_count, available_count, borrowed_count FROM items WHERE item_id = ?`
	var it Item
	err := s.db.QueryRowContext(ctx, q, itemID).Scan(
		&it.ItemID, &it.TotalCount, &it.AvailableCount, &it.BorrowedCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, NewNotFoundError("item not found")
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &it, nil
}

// ReserveCopy claims one copy of the item: decrements available_count and
// increments borrowed_count only while a copy is still free. Returns
// false when a concurrent borrow consumed the last copy first.
func (s *Store) ReserveCopy(ctx context.Context, itemID string, now time.Time) (bool, error) {
	const q = `
	UPDATE items
	SET available_count = available_count - 1,
	    borrowed_count  = borrowed_count + 1,
	    updated_at      = ?
	WHERE item_id = ? AND available_count > 0`
	res, err := s.db.ExecContext(ctx, q, now, itemID)
	if err != nil {
		return false, fmt.Errorf("reserve copy: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve copy: %w", err)
	}
	return aff == 1, nil
}

func (s *Store) InsertLoan(ctx context.Context, l *Loan) error {
	const q = `
	INSERT INTO loans (loan_id, user_id, item_id, borrowed_at, returned_at, status)
	VALUES (?, ?, ?, ?, NULL, ?)`
	if _, err := s.db.ExecContext(ctx, q, l.LoanID, l.UserID, l.ItemID, l.BorrowedAt, l.Status); err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

// DeleteLoan removes a provisional loan whose counter decrement did not
// land. Only the compensation path calls this.
func (s *Store) DeleteLoan(ctx context.Context, loanID string) error {
	const q = `DELETE FROM loans WHERE loan_id = ?`
	if _, err := s.db.ExecContext(ctx, q, loanID); err != nil {
		return fmt.Errorf("delete loan: %w", err)
	}
	return nil
}

func (s *Store) GetLoan(ctx context.Context, loanID string) (*Loan, error) {
	const q = `SELECT loan_id, user_id, item_id, borrowed_at, returned_at, status FROM loans WHERE loan_id = ?`
	var l Loan
	err := s.db.QueryRowContext(ctx, q, loanID).Scan(
		&l.LoanID, &l.UserID, &l.ItemID, &l.BorrowedAt, &l.ReturnedAt, &l.Status,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, NewNotFoundError("loan not found")
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return &l, nil
}

// FinalizeReturn flips the loan to returned and gives the copy back to
// the item in ONE transaction, so the ledger and the counters can never
// drift apart on a partial failure. The loan update doubles as the
// guard: zero rows affected means another return won the race.
func (s *Store) FinalizeReturn(ctx context.Context, loanID, itemID string, returnedAt time.Time) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		res, err := tx.ExecContext(ctx, `
		UPDATE loans SET status = ?, returned_at = ?
		WHERE loan_id = ? AND status = ?`,
			StatusReturned, returnedAt, loanID, StatusBorrowed,
		)
		if err != nil {
			return fmt.Errorf("update loan: %w", err)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update loan: %w", err)
		}
		if aff == 0 {
			return NewConflictError("loan already returned")
		}

		res, err = tx.ExecContext(ctx, `
		UPDATE items
		SET available_count = available_count + 1,
		    borrowed_count  = borrowed_count - 1,
		    updated_at      = ?
		WHERE item_id = ? AND borrowed_count >= 1`,
			returnedAt, itemID,
		)
		if err != nil {
			return fmt.Errorf("restore copy: %w", err)
		}
		aff, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("restore copy: %w", err)
		}
		if aff == 0 {
			// active loan with no borrowed copy on the item: the
			// cross-entity invariant is broken, refuse to make it worse
			return NewInternalError("item counters out of sync with loan ledger")
		}
		return nil
	})
}

// CountActiveLoans reports the number of borrowed loans for an item.
// Reconciliation helper: must always equal items.borrowed_count.
func (s *Store) CountActiveLoans(ctx context.Context, itemID string) (int, error) {
	const q = `SELECT COUNT(*) FROM loans WHERE item_id = ? AND status = ?`
	var n int
	if err := s.db.QueryRowContext(ctx, q, itemID, StatusBorrowed).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active loans: %w", err)
	}
	return n, nil
}
