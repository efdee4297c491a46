package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"
)

// ===== Error model =====

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

type Service struct {
	db    *sql.DB
	store *Store
}

func NewService(db *sql.DB) *Service { return &Service{db: db, store: NewStore(db)} }

func (s *Service) Create(ctx context.Context, in CreateItemRequest) (*ItemResponse, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrInvalid("invalid title")
	}
	if in.Kind != KindBook && in.Kind != KindMovie {
		return nil, ErrInvalid("invalid kind")
	}
	if in.TotalCount < 1 {
		return nil, ErrInvalid("totalCount must be >= 1")
	}

	now := time.Now()
	it := &Item{
		ItemID:           ulid.Make().String(),
		Title:            in.Title,
		Kind:             in.Kind,
		AuthorOrProducer: in.AuthorOrProducer,
		Year:             in.Year,
		Language:         in.Language,
		Genre:            joinGenre(in.Genre),
		Image:            in.Image,
		TotalCount:       in.TotalCount,
		AvailableCount:   in.TotalCount,
		BorrowedCount:    0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.Insert(ctx, it); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	resp := toResponse(it)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, itemID string) (*ItemResponse, error) {
	it, err := s.store.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(it)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, q SearchQuery) ([]ItemResponse, error) {
	list, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]ItemResponse, 0, len(list))
	for _, it := range list {
		out = append(out, toResponse(it))
	}
	return out, nil
}

func (s *Service) ListBorrowedBooks(ctx context.Context) ([]ItemResponse, error) {
	list, err := s.store.BorrowedBooks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ItemResponse, 0, len(list))
	for _, it := range list {
		out = append(out, toResponse(it))
	}
	return out, nil
}

// Resize changes an item's total capacity. The write is guarded on the
// borrowed count read here, so losing a race against a concurrent
// borrow/return surfaces as a conflict instead of corrupting the counters.
func (s *Service) Resize(ctx context.Context, itemID string, newTotal int) (*ResizeResponse, error) {
	if newTotal < 0 {
		return nil, ErrInvalid("totalCount must be a number >= 0")
	}

	it, err := s.store.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if newTotal < it.BorrowedCount {
		return nil, ErrConflict("totalCount cannot be less than borrowedCount")
	}

	ok, err := s.store.ResizeCounts(ctx, itemID, newTotal, it.BorrowedCount, time.Now())
	if err != nil {
		return nil, fmt.Errorf("resize item: %w", err)
	}
	if !ok {
		return nil, ErrConflict("item counts changed concurrently, retry")
	}

	return &ResizeResponse{
		OK:             true,
		TotalCount:     newTotal,
		AvailableCount: newTotal - it.BorrowedCount,
	}, nil
}
