// Package search — клиент вебхука автоматизации, анализирующего вакансию
// по URL и возвращающего сведения о компании и контактах.
//
// Успешный поиск списывает один кредит через сервис аккаунта и публикует
// EventSearchUsed, чтобы остальные потребители перечитали квоту.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/crewdoghq/crewdog-client/internal/bus"
	"github.com/crewdoghq/crewdog-client/internal/lib/sl"
)

// ErrQuotaExhausted возвращается, когда бэкенд отказал в списании кредита.
var ErrQuotaExhausted = errors.New("search quota exhausted")

// Result — ответ вебхука по вакансии.
type Result struct {
	Company  string    `json:"company"`
	Website  string    `json:"website,omitempty"`
	Summary  string    `json:"summary,omitempty"`
	Contacts []Contact `json:"contacts,omitempty"`
}

// Contact — найденный контакт в компании.
type Contact struct {
	Name     string `json:"name"`
	Title    string `json:"title,omitempty"`
	Email    string `json:"email,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// CreditConsumer списывает поисковый кредит. Реализуется сервисом аккаунта.
type CreditConsumer interface {
	ConsumeCredit(ctx context.Context, userID, accessToken string) (bool, error)
}

// Client запускает поиск через внешний вебхук.
type Client struct {
	webhookURL string
	httpClient *http.Client
	credits    CreditConsumer
	activity   bus.Bus
	log        *slog.Logger
}

// New создает поисковый клиент.
func New(webhookURL string, credits CreditConsumer, activity bus.Bus, log *slog.Logger) *Client {
	return &Client{
		webhookURL: webhookURL,
		// Вебхук ходит по внешним сайтам, быстрым не бывает.
		httpClient: &http.Client{Timeout: 120 * time.Second},
		credits:    credits,
		activity:   activity,
		log:        log,
	}
}

// Run анализирует вакансию по URL. Кредит списывается только после
// успешного ответа вебхука.
func (c *Client) Run(ctx context.Context, userID, accessToken, jobURL string) (*Result, error) {
	const op = "search.Run"

	if jobURL == "" {
		return nil, fmt.Errorf("%s: job url is required", op)
	}

	payload, err := json.Marshal(map[string]string{
		"jobUrl": jobURL,
		"userId": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: webhook returned status %d", op, resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := c.credits.ConsumeCredit(ctx, userID, accessToken)
	if err != nil {
		// Результат уже получен, не отбираем его из-за сбоя учета.
		c.log.Warn("consume credit failed", sl.Op(op), sl.Err(err))
	} else if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrQuotaExhausted)
	}

	if err := c.activity.Publish(ctx, bus.EventSearchUsed); err != nil {
		c.log.Warn("publish search_used failed", sl.Op(op), sl.Err(err))
	}

	c.log.Info("search completed", slog.String("user_id", userID), slog.String("company", result.Company))
	return &result, nil
}
