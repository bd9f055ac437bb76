package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sebuszqo/FinanceTracker/internal/notify"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Login      string    `json:"login"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository reads the accounts managed by the identity service.
type Repository interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
}

var (
	_ Repository       = (*PostgresRepository)(nil)
	_ notify.Directory = (*PostgresRepository)(nil)
)

type PostgresRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, email, login, is_verified, created_at
		FROM users
		WHERE id = $1
	`

	var user User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email, &user.Login, &user.IsVerified, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not find user: %w", err)
	}

	return &user, nil
}

// Contact addresses budget alerts to the user's login name.
func (r *PostgresRepository) Contact(ctx context.Context, userID string) (notify.Contact, error) {
	user, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return notify.Contact{}, err
	}
	return notify.Contact{Email: user.Email, Name: user.Login}, nil
}
