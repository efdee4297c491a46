package auth

import (
	"context"
	"database/sql"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// GetByEmail returns nil without error when no account matches.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	const q = `
	SELECT user_id, name, email, password_hash, birth_date, role, guardian_name, guardian_phone, created_at
	FROM users WHERE email = ?`
	var u User
	err := s.db.QueryRowContext(ctx, q, email).Scan(
		&u.UserID, &u.Name, &u.Email, &u.PasswordHash, &u.BirthDate,
		&u.Role, &u.GuardianName, &u.GuardianPhone, &u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) Insert(ctx context.Context, u *User) error {
	const q = `
	INSERT INTO users
	(user_id, name, email, password_hash, birth_date, role, guardian_name, guardian_phone, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		u.UserID, u.Name, u.Email, u.PasswordHash, u.BirthDate,
		u.Role, u.GuardianName, u.GuardianPhone, u.CreatedAt,
	)
	return err
}
