package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fieldpay/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	BranchID     string `json:"branchId,omitempty"`
	PasswordHash string `json:"-"`
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (User, error) {
	var out User
	var branchID *string
	err := s.DB.QueryRow(ctx, `
    SELECT id, email, role, branch_id::text, password_hash
    FROM users
    WHERE lower(email) = lower($1) AND status = 'active'
  `, email).Scan(&out.ID, &out.Email, &out.Role, &branchID, &out.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if branchID != nil {
		out.BranchID = *branchID
	}
	return out, err
}

func (s *Store) CreateUser(ctx context.Context, user User) (User, error) {
	var branchID any
	if user.BranchID != "" {
		branchID = user.BranchID
	}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role, branch_id)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, user.Email, user.PasswordHash, user.Role, branchID).Scan(&user.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return User{}, ErrEmailTaken
	}
	return user, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) SyncRolePermissions(ctx context.Context) error {
	for role, perms := range RolePermissions {
		for _, perm := range perms {
			if _, err := s.DB.Exec(ctx, `
        INSERT INTO role_permissions (role, permission) VALUES ($1,$2)
        ON CONFLICT DO NOTHING
      `, role, perm); err != nil {
				return err
			}
		}
	}
	return nil
}
