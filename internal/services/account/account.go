// Package account реализует получение сводки аккаунта с внешнего бэкенда.
//
// Сервис никогда не возвращает ошибку наружу: любой сбой сети, статуса или
// разбора превращается в гостевую сводку по умолчанию, чтобы вызывающая
// сторона всегда имела согласованное состояние квоты.
package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/crewdoghq/crewdog-client/internal/lib/sl"
	"github.com/crewdoghq/crewdog-client/internal/models"
	"github.com/crewdoghq/crewdog-client/internal/services/summary"
)

// Service ходит на бэкенд аккаунтов и нормализует его ответы.
type Service struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// New создает сервис аккаунта поверх указанного базового URL бэкенда.
func New(baseURL string, log *slog.Logger) *Service {
	return &Service{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// GuestSummary возвращает сводку незалогиненного пользователя:
// бесплатный план с нетронутой квотой.
func GuestSummary() models.NormalizedSummary {
	return summary.Normalize(&models.RawSummary{
		Status:           strPtr("none"),
		CreditsRemaining: models.FieldOf(float64(summary.FreeCap)),
	})
}

// FetchSummary запрашивает сводку аккаунта пользователя.
//
// Для пустого userID и при любой ошибке возвращается гостевая сводка.
// Успешный ответ с нечитаемым телом нормализуется из пустой сырой сводки.
func (s *Service) FetchSummary(ctx context.Context, userID, accessToken string) models.NormalizedSummary {
	const op = "account.FetchSummary"

	if userID == "" {
		return GuestSummary()
	}

	// Кэш-бастер защищает от устаревших ответов промежуточных кэшей.
	endpoint := fmt.Sprintf("%s/account/summary/%s?t=%s", s.baseURL, userID, uuid.NewString())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		s.log.Error("build summary request", sl.Op(op), sl.Err(err))
		return GuestSummary()
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn("summary request failed, falling back to guest summary", sl.Op(op), sl.Err(err))
		return GuestSummary()
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.log.Warn("summary request returned non-2xx, falling back to guest summary",
			sl.Op(op), slog.Int("status", resp.StatusCode))
		return GuestSummary()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.log.Warn("read summary body", sl.Op(op), sl.Err(err))
		return summary.Normalize(&models.RawSummary{})
	}

	var raw models.RawSummary
	if err := json.Unmarshal(body, &raw); err != nil {
		s.log.Warn("decode summary body", sl.Op(op), sl.Err(err))
		return summary.Normalize(&models.RawSummary{})
	}
	return summary.Normalize(&raw)
}

// ConsumeCredit списывает один поисковый кредит пользователя.
//
// Возвращает true, если бэкенд подтвердил списание. Безлимитные аккаунты
// бэкенд подтверждает без изменения счетчиков.
func (s *Service) ConsumeCredit(ctx context.Context, userID, accessToken string) (bool, error) {
	const op = "account.ConsumeCredit"

	payload, err := json.Marshal(map[string]string{"user_id": userID})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/account/consume", bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var out struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return out.OK, nil
}

func strPtr(s string) *string { return &s }
