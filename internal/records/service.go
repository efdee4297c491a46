package records

import (
	"context"
	"database/sql"
	"time"

	ulid "github.com/oklog/ulid/v2"
)

type Service struct {
	store *Store
}

func NewService(db *sql.DB) *Service { return &Service{store: NewStore(db)} }

func (s *Service) List(ctx context.Context) ([]RecordResponse, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RecordResponse, 0, len(list))
	for _, r := range list {
		out = append(out, toResponse(r))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*RecordResponse, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(r)
	return &resp, nil
}

func (s *Service) Create(ctx context.Context, req RecordRequest) (*RecordResponse, error) {
	r := &Record{
		RecordID:  ulid.Make().String(),
		Name:      req.Name,
		Position:  req.Position,
		Level:     req.Level,
		CreatedAt: time.Now(),
	}
	if err := s.store.Insert(ctx, r); err != nil {
		return nil, err
	}
	resp := toResponse(r)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, id string, req RecordRequest) (*RecordResponse, error) {
	if err := s.store.Update(ctx, id, req, time.Now()); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
