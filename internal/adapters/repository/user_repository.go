package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/ports"
)

const userColumns = `id, username, email, password_hash, role, created_at`

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) ports.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *entities.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		err = mapError("create user", err, nil)
		if errors.Is(err, entities.ErrDuplicate) {
			return entities.ErrUsernameTaken
		}
		return err
	}

	return nil
}

func (r *UserRepositoryImpl) Ensure(ctx context.Context, tx *sqlx.Tx, user *entities.User) (bool, error) {
	query := `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
		RETURNING id, created_at`

	err := tx.QueryRowxContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.CreatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, mapError("ensure user", err, nil)
	}

	// Existing account: keep its password and role
	query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	if err := tx.GetContext(ctx, user, query, user.Username); err != nil {
		return false, mapError("load existing user", err, entities.ErrUserNotFound)
	}
	return false, nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user entities.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, mapError("get user by id", err, entities.ErrUserNotFound)
	}

	return &user, nil
}

func (r *UserRepositoryImpl) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	var user entities.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, mapError("get user by username", err, entities.ErrUserNotFound)
	}

	return &user, nil
}

func (r *UserRepositoryImpl) List(ctx context.Context) ([]*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	users := []*entities.User{}
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, mapError("list users", err, nil)
	}

	return users, nil
}

func (r *UserRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, mapError("count users", err, nil)
	}

	return count, nil
}
