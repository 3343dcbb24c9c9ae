package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"devconnect/internal/auth/models"
	id "devconnect/pkg/domain"
	"devconnect/pkg/email"
	"devconnect/pkg/platform/sentinel"
)

// Postgres error code for unique_violation.
const uniqueViolation = "23505"

// PostgresStore persists users in the users table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, name, email, email_key, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(u.ID), u.Name, u.Email, u.EmailKey(), u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(userID)))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, address string) (*models.User, error) {
	query := `SELECT id, name, email, password_hash, created_at FROM users WHERE email_key = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, email.Key(address)))
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.User, error) {
	var (
		rawID uuid.UUID
		u     models.User
	)
	if err := row.Scan(&rawID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = id.UserID(rawID)
	return &u, nil
}
