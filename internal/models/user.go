package models

import "time"

// AuthUser — каноничное представление аутентифицированного пользователя.
// Создается исключительно адаптером провайдера идентификации; остальные
// компоненты не читают провайдер-специфичные поля напрямую.
type AuthUser struct {
	ID    string  // Уникальный идентификатор пользователя у провайдера
	Email *string // Электронная почта, может отсутствовать
	Name  *string // Отображаемое имя, может отсутствовать
}

// Session — активная сессия пользователя у провайдера идентификации.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         AuthUser
}

// Expired сообщает, истекла ли сессия. Сессия без известного срока
// считается действующей.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// User представляет учётную запись в хранилище dev-бэкенда.
type User struct {
	UUID         string     // Уникальный идентификатор пользователя
	Email        string     // Электронная почта
	PasswordHash string     // Хэш пароля пользователя
	Role         string     // Роль пользователя, admin или user
	CreatedAt    *time.Time // Дата создания учётной записи
}
