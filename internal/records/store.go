package records

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const recordColumns = `record_id, name, position, level, created_at, updated_at`

func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM records`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.RecordID, &r.Name, &r.Position, &r.Level, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) GetByID(ctx context.Context, id string) (*Record, error) {
	var r Record
	err := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE record_id = ?`, id).
		Scan(&r.RecordID, &r.Name, &r.Position, &r.Level, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) Insert(ctx context.Context, r *Record) error {
	const q = `INSERT INTO records (record_id, name, position, level, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, r.RecordID, r.Name, r.Position, r.Level, r.CreatedAt)
	return err
}

func (s *Store) Update(ctx context.Context, id string, req RecordRequest, now time.Time) error {
	const q = `UPDATE records SET name = ?, position = ?, level = ?, updated_at = ? WHERE record_id = ?`
	res, err := s.db.ExecContext(ctx, q, req.Name, req.Position, req.Level, now, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE record_id = ?`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}
