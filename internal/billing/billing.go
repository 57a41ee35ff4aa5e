// Package billing — клиент биллингового бэкенда: checkout, портал,
// продление, отмена, даунгрейд и фидбэк при отмене.
//
// Эндпоинты — непрозрачные внешние коллабораторы. Контракт клиента:
// успешное действие публикует EventQuotaChanged на шине активности,
// чтобы потребители перечитали квоту; ошибки не ретраятся и несут текст
// сервера, когда он есть.
package billing

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

// ErrBillingFailed — общий текст для случая, когда сервер не прислал
// своего сообщения.
var ErrBillingFailed = errors.New("billing request failed")

// Client ходит на биллинговый бэкенд.
type Client struct {
	baseURL    string
	httpClient *http.Client
	activity   bus.Bus
	log        *slog.Logger
}

// New создает биллинговый клиент поверх указанного базового URL.
func New(baseURL string, activity bus.Bus, log *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		activity:   activity,
		log:        log,
	}
}

// actionRequest — тело всех биллинговых запросов.
type actionRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Reason string `json:"reason,omitempty"`
}

// StartCheckout создает checkout-сессию и возвращает URL для перенаправления
// пользователя.
func (c *Client) StartCheckout(ctx context.Context, userID, email string) (string, error) {
	const op = "billing.StartCheckout"
	return c.redirectAction(ctx, op, "/billing/checkout", userID, email)
}

// OpenPortal создает сессию биллингового портала и возвращает ее URL.
func (c *Client) OpenPortal(ctx context.Context, userID, email string) (string, error) {
	const op = "billing.OpenPortal"
	return c.redirectAction(ctx, op, "/billing/portal", userID, email)
}

// Renew возобновляет подписку, отмененную на конец периода.
func (c *Client) Renew(ctx context.Context, userID, email string) error {
	const op = "billing.Renew"
	return c.mutateAction(ctx, op, "/billing/renew", actionRequest{UserID: userID, Email: email})
}

// Cancel отменяет подписку на конец оплаченного периода.
func (c *Client) Cancel(ctx context.Context, userID, email string) error {
	const op = "billing.Cancel"
	return c.mutateAction(ctx, op, "/billing/cancel", actionRequest{UserID: userID, Email: email})
}

// Downgrade переводит аккаунт на бесплатный тариф.
func (c *Client) Downgrade(ctx context.Context, userID, email string) error {
	const op = "billing.Downgrade"
	return c.mutateAction(ctx, op, "/billing/downgrade", actionRequest{UserID: userID, Email: email})
}

// SendCancellationFeedback отправляет причину отмены. Квоту не меняет,
// поэтому событие на шину не публикуется.
func (c *Client) SendCancellationFeedback(ctx context.Context, userID, email, reason string) error {
	const op = "billing.SendCancellationFeedback"
	_, err := c.post(ctx, op, "/billing/cancellation-feedback",
		actionRequest{UserID: userID, Email: email, Reason: reason})
	return err
}

// redirectAction выполняет действие, ответ которого содержит URL
// для перенаправления.
func (c *Client) redirectAction(ctx context.Context, op, path, userID, email string) (string, error) {
	body, err := c.post(ctx, op, path, actionRequest{UserID: userID, Email: email})
	if err != nil {
		return "", err
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("%s: %w", op, ErrBillingFailed)
	}
	return out.URL, nil
}

// mutateAction выполняет действие, меняющее квоту, и публикует
// EventQuotaChanged при успехе.
func (c *Client) mutateAction(ctx context.Context, op, path string, req actionRequest) error {
	if _, err := c.post(ctx, op, path, req); err != nil {
		return err
	}
	if err := c.activity.Publish(ctx, bus.EventQuotaChanged); err != nil {
		// Потребители узнают об изменении при следующем пробуждении.
		c.log.Warn("publish quota_changed failed", sl.Op(op), sl.Err(err))
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, path string, payload actionRequest) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg := serverMessage(respBody); msg != "" {
			return nil, fmt.Errorf("%s: %s", op, msg)
		}
		return nil, fmt.Errorf("%s: %w", op, ErrBillingFailed)
	}
	return respBody, nil
}

// serverMessage достает текст ошибки из ответа сервера, если он есть.
func serverMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
