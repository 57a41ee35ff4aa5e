// Package auth определяет адаптер провайдера идентификации.
//
// Адаптер — единственный компонент, которому разрешено говорить на родном
// протоколе внешнего провайдера и переводить его представление пользователя
// и сессии в каноничные models.AuthUser и models.Session. Остальной код
// зависит только от интерфейса возможностей Provider.
package auth

import (
	"context"

	"github.com/crewdoghq/crewdog-client/internal/models"
)

// Event — тип события изменения состояния аутентификации.
type Event string

const (
	// EventSignedIn — пользователь вошел в систему.
	EventSignedIn Event = "SIGNED_IN"
	// EventSignedOut — пользователь вышел из системы.
	EventSignedOut Event = "SIGNED_OUT"
	// EventUserUpdated — данные пользователя обновлены (например, пароль).
	EventUserUpdated Event = "USER_UPDATED"
)

// Listener получает уведомления об изменении состояния аутентификации.
// Сессия равна nil после выхода.
type Listener func(event Event, session *models.Session)

// Provider описывает возможности провайдера идентификации.
//
// Каждая мутирующая операция возвращает ошибку с текстом провайдера;
// вызывающая сторона показывает его пользователю и повторяет действие
// интерактивно.
type Provider interface {
	// Session возвращает текущую сессию или nil, если пользователь
	// не аутентифицирован. Ошибка означает сбой самого провайдера.
	Session(ctx context.Context) (*models.Session, error)
	// OnAuthStateChange регистрирует слушателя; возвращенная функция
	// снимает подписку.
	OnAuthStateChange(fn Listener) (unsubscribe func())
	// SignInWithPassword выполняет вход по email и паролю.
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	// SignUp регистрирует нового пользователя.
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	// SignInWithOAuth возвращает URL для redirect-флоу внешнего OAuth-провайдера.
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error)
	// SignOut завершает текущую сессию.
	SignOut(ctx context.Context) error
	// ResetPasswordForEmail запрашивает письмо для сброса пароля.
	ResetPasswordForEmail(ctx context.Context, email string) error
	// UpdatePassword меняет пароль текущей сессии.
	UpdatePassword(ctx context.Context, newPassword string) error
}
