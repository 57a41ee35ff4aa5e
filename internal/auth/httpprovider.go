package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crewdoghq/crewdog-client/internal/lib/sl"
	"github.com/crewdoghq/crewdog-client/internal/models"
)

// HTTPProvider — конкретная привязка адаптера к REST-провайдеру
// идентификации (gotrue-совместимая поверхность).
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger

	mu        sync.RWMutex
	session   *models.Session
	listeners map[int]Listener
	nextID    int
}

// NewHTTPProvider создает адаптер для провайдера по указанному базовому URL.
func NewHTTPProvider(baseURL, apiKey string, log *slog.Logger) *HTTPProvider {
	return &HTTPProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
		listeners:  make(map[int]Listener),
	}
}

// sessionPayload — родной формат сессии провайдера. За его пределы этот
// тип не выходит.
type sessionPayload struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         userPayload `json:"user"`
}

type userPayload struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

// toSession переводит родную сессию провайдера в каноничную. Срок действия
// берется из expires_in, а при его отсутствии — из exp-клейма токена
// (подпись здесь не проверяется, токен проверяет бэкенд).
func (p *HTTPProvider) toSession(raw sessionPayload) *models.Session {
	sess := &models.Session{
		AccessToken:  raw.AccessToken,
		RefreshToken: raw.RefreshToken,
		User:         normalizeUser(raw.User),
	}
	if raw.ExpiresIn > 0 {
		sess.ExpiresAt = time.Now().Add(time.Duration(raw.ExpiresIn) * time.Second)
	} else if raw.AccessToken != "" {
		var claims jwt.RegisteredClaims
		if _, _, err := jwt.NewParser().ParseUnverified(raw.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
			sess.ExpiresAt = claims.ExpiresAt.Time
		}
	}
	return sess
}

func normalizeUser(raw userPayload) models.AuthUser {
	user := models.AuthUser{ID: raw.ID}
	if raw.Email != "" {
		email := raw.Email
		user.Email = &email
	}
	if raw.UserMetadata.FullName != "" {
		name := raw.UserMetadata.FullName
		user.Name = &name
	}
	return user
}

// Session возвращает текущую сессию. Истекшая сессия сбрасывается.
func (p *HTTPProvider) Session(_ context.Context) (*models.Session, error) {
	p.mu.RLock()
	sess := p.session
	p.mu.RUnlock()

	if sess == nil {
		return nil, nil
	}
	if sess.Expired(time.Now()) {
		p.mu.Lock()
		p.session = nil
		p.mu.Unlock()
		p.emit(EventSignedOut, nil)
		return nil, nil
	}
	return sess, nil
}

// OnAuthStateChange регистрирует слушателя изменений состояния.
func (p *HTTPProvider) OnAuthStateChange(fn Listener) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *HTTPProvider) emit(event Event, session *models.Session) {
	p.mu.RLock()
	fns := make([]Listener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()

	for _, fn := range fns {
		fn(event, session)
	}
}

// SignInWithPassword выполняет вход по email и паролю.
func (p *HTTPProvider) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	const op = "auth.SignInWithPassword"
	return p.startSession(ctx, op, "/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	})
}

// SignUp регистрирует нового пользователя.
func (p *HTTPProvider) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	const op = "auth.SignUp"
	return p.startSession(ctx, op, "/signup", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (p *HTTPProvider) startSession(ctx context.Context, op, path string, body any) (*models.Session, error) {
	respBody, err := p.do(ctx, op, http.MethodPost, path, body, "")
	if err != nil {
		return nil, err
	}
	var raw sessionPayload
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sess := p.toSession(raw)

	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()
	p.emit(EventSignedIn, sess)

	p.log.Info("signed in", slog.String("user_id", sess.User.ID))
	return sess, nil
}

// SignInWithOAuth возвращает URL, на который нужно отправить пользователя
// для входа через внешний OAuth-провайдер.
func (p *HTTPProvider) SignInWithOAuth(_ context.Context, provider, redirectTo string) (string, error) {
	const op = "auth.SignInWithOAuth"
	if provider == "" {
		return "", fmt.Errorf("%s: provider is required", op)
	}
	query := url.Values{"provider": {provider}}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	return p.baseURL + "/authorize?" + query.Encode(), nil
}

// SignOut завершает сессию у провайдера и локально.
func (p *HTTPProvider) SignOut(ctx context.Context) error {
	const op = "auth.SignOut"

	p.mu.Lock()
	sess := p.session
	p.session = nil
	p.mu.Unlock()

	if sess != nil {
		if _, err := p.do(ctx, op, http.MethodPost, "/logout", nil, sess.AccessToken); err != nil {
			// Локальная сессия уже сброшена, провайдер дочистит свою по TTL.
			p.log.Warn("provider logout failed", sl.Err(err))
		}
	}
	p.emit(EventSignedOut, nil)
	return nil
}

// ResetPasswordForEmail запрашивает у провайдера письмо для сброса пароля.
func (p *HTTPProvider) ResetPasswordForEmail(ctx context.Context, email string) error {
	const op = "auth.ResetPasswordForEmail"
	_, err := p.do(ctx, op, http.MethodPost, "/recover", map[string]string{"email": email}, "")
	return err
}

// UpdatePassword меняет пароль пользователя текущей сессии.
func (p *HTTPProvider) UpdatePassword(ctx context.Context, newPassword string) error {
	const op = "auth.UpdatePassword"

	p.mu.RLock()
	sess := p.session
	p.mu.RUnlock()
	if sess == nil {
		return fmt.Errorf("%s: no active session", op)
	}

	_, err := p.do(ctx, op, http.MethodPut, "/user", map[string]string{"password": newPassword}, sess.AccessToken)
	if err != nil {
		return err
	}
	p.emit(EventUserUpdated, sess)
	return nil
}

// do выполняет запрос к провайдеру и возвращает тело ответа.
// Неуспешный статус превращается в ошибку с текстом провайдера.
func (p *HTTPProvider) do(ctx context.Context, op, method, path string, body any, token string) ([]byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: %s", op, providerMessage(respBody, resp.Status))
	}
	return respBody, nil
}

// providerMessage достает человекочитаемый текст ошибки из ответа
// провайдера; формат поля у провайдеров различается.
func providerMessage(body []byte, fallback string) string {
	var payload struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, msg := range []string{payload.ErrorDescription, payload.Msg, payload.Message, payload.Error} {
			if msg != "" {
				return msg
			}
		}
	}
	return fallback
}
