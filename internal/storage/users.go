package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crewdoghq/crewdog-client/internal/models"
)

// ErrUserNotFound возвращается, когда пользователь отсутствует в базе.
var ErrUserNotFound = errors.New("user not found")

// RegisterUser сохраняет нового пользователя вместе со стартовой строкой
// квоты и возвращает его ID. Обе вставки идут в одной транзакции: аккаунт
// без строки квоты выглядел бы для клиента как исчерпанный.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var newID string
	query := `INSERT INTO users (email, password_hash, role)
			  VALUES ($1, $2, $3)
			  RETURNING uid;`
	if err := tx.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.Role).Scan(&newID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	query = `INSERT INTO account_summaries (user_uid, status, search_cap)
			 VALUES ($1, 'none', $2);`
	if _, err := tx.ExecContext(ctx, query, newID, freeSearchCap); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetUserByEmail возвращает пользователя по его email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, password_hash, role, created_at
			  FROM users
			  WHERE email = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, email)

	var createdAt sql.NullTime
	if err := row.Scan(&u.UUID, &u.Email, &u.PasswordHash, &u.Role, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if createdAt.Valid {
		u.CreatedAt = &createdAt.Time
	}
	return u, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, password_hash, role, created_at
			  FROM users
			  WHERE uid = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var createdAt sql.NullTime
	if err := row.Scan(&u.UUID, &u.Email, &u.PasswordHash, &u.Role, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if createdAt.Valid {
		u.CreatedAt = &createdAt.Time
	}
	return u, nil
}
