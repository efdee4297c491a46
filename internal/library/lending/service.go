package lending

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"biblio-backend/internal/platform/auth"
)

// ===== interfaces =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// InventoryStore is the durable storage the reservation logic runs
// against. ReserveCopy and FinalizeReturn are conditional writes: the
// store re-checks the predicate against the current row atomically and
// reports whether the write landed. Conditional writes on the same item
// id are linearizable with respect to one another; that single property
// carries the whole no-over-allocation argument.
type InventoryStore interface {
	GetItem(ctx context.Context, itemID string) (*Item, error)
	ReserveCopy(ctx context.Context, itemID string, now time.Time) (bool, error)
	InsertLoan(ctx context.Context, l *Loan) error
	DeleteLoan(ctx context.Context, loanID string) error
	GetLoan(ctx context.Context, loanID string) (*Loan, error)
	FinalizeReturn(ctx context.Context, loanID, itemID string, returnedAt time.Time) error
}

// IdempotencyCache guards against duplicate borrow submissions.
// Optional; satisfied by platform/cache.Client.
type IdempotencyCache interface {
	SetIdempotency(ctx context.Context, key string) (bool, error)
}

// ===== Service =====

type Service struct {
	store InventoryStore
	cache IdempotencyCache // may be nil
	clock Clock
	id    IDGen
}

func NewService(db *sql.DB, cache IdempotencyCache) *Service {
	return &Service{
		store: NewStore(db),
		cache: cache,
		clock: realClock{},
		id:    ulidGen{},
	}
}

// Borrow creates exactly one active loan for the user and takes one copy
// of the item, or fails with no visible side effect.
//
// The flow is optimistic: the loan row is written provisionally, then
// ReserveCopy's predicate (available_count > 0, re-checked at write
// time) decides the race. When the predicate no longer holds the
// provisional loan is compensated away. The availability check before
// the insert is only an optimization that skips the loan write in the
// common sold-out case.
func (s *Service) Borrow(ctx context.Context, userID, itemID, idempotencyKey string) (*LoanResponse, error) {
	if itemID == "" {
		return nil, NewInvalidArgumentError("itemId is required")
	}

	if s.cache != nil && idempotencyKey != "" {
		ok, err := s.cache.SetIdempotency(ctx, fmt.Sprintf("borrow:%s:%s", userID, idempotencyKey))
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if !ok {
			return nil, NewConflictError("duplicate request")
		}
	}

	it, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it.AvailableCount <= 0 {
		return nil, NewUnavailableError("no copies available")
	}

	loanID, err := s.id.New()
	if err != nil {
		return nil, err
	}
	loan := &Loan{
		LoanID:     loanID,
		UserID:     userID,
		ItemID:     itemID,
		BorrowedAt: s.clock.Now(),
		Status:     StatusBorrowed,
	}
	if err := s.store.InsertLoan(ctx, loan); err != nil {
		return nil, err
	}

	matched, err := s.store.ReserveCopy(ctx, itemID, loan.BorrowedAt)
	if err != nil || !matched {
		// the provisional loan must not survive; run the compensation
		// even when the client has already disconnected
		if delErr := s.store.DeleteLoan(context.WithoutCancel(ctx), loanID); delErr != nil {
			return nil, fmt.Errorf("compensate loan %s: %w", loanID, delErr)
		}
		if err != nil {
			return nil, err
		}
		return nil, NewUnavailableError("no copies available")
	}

	resp := buildLoanResponse(loan)
	return &resp, nil
}

// Return marks an active loan as returned and restores one copy to the
// item. Allowed for the loan's owner or an admin.
func (s *Service) Return(ctx context.Context, userID, role, loanID string) (*ReturnResponse, error) {
	if loanID == "" {
		return nil, NewInvalidArgumentError("loan id is required")
	}

	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != StatusBorrowed {
		return nil, NewConflictError("loan already returned")
	}
	if loan.UserID != userID && role != auth.RoleAdmin {
		return nil, NewForbiddenError("not the borrower")
	}

	if err := s.store.FinalizeReturn(ctx, loanID, loan.ItemID, s.clock.Now()); err != nil {
		return nil, err
	}
	return &ReturnResponse{OK: true}, nil
}
