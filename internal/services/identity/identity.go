// Package identity содержит бизнес-логику dev-бэкенда для регистрации,
// входа и валидации токенов. Эмулирует внешнего провайдера идентификации
// для локальной разработки.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/crewdoghq/crewdog-client/internal/lib/jwt"
	"github.com/crewdoghq/crewdog-client/internal/lib/password"
	"github.com/crewdoghq/crewdog-client/internal/models"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
// Единый текст для несуществующего пользователя и неверного пароля.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его ID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByEmail возвращает пользователя по email или ошибку, если не найден.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service отвечает за регистрацию, авторизацию и валидацию JWT.
type Service struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// New создает новый экземпляр Service.
func New(users UserRepository, jwtMaker jwt.Maker) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register создает нового пользователя с хэшированием пароля и дефолтной
// ролью "user". Возвращает ID созданного пользователя.
func (s *Service) Register(ctx context.Context, email, rawPassword string) (string, error) {
	const op = "identity.Register"

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		Email:        email,
		PasswordHash: hashed,
		Role:         "user",
	}
	uid, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", "", ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", ErrInvalidCredentials
	}
	token, err = s.jwtMaker.GenerateToken(user.Email, user.Role, user.UUID)
	if err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// ValidateToken проверяет JWT и возвращает информацию о пользователе,
// роль и признак валидности.
func (s *Service) ValidateToken(_ context.Context, token string) (*models.User, string, bool, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, "", false, err
	}
	user := &models.User{
		Email: claims.Email,
		Role:  claims.Role,
		UUID:  claims.Subject,
	}
	return user, claims.Role, true, nil
}
