package auth

import (
	"context"
	"database/sql"
	"errors"
)

// ダッシュボードログイン用ユーザー（従業員レコードとは別テーブル）
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) UserStore {
	return &Store{db: db}
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	const q = `
SELECT user_id, name, email, password_hash, role
FROM users
WHERE email = ?
LIMIT 1
`
	var u User
	err := s.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
