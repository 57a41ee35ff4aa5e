package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crewdoghq/crewdog-client/internal/bus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type mockCredits struct {
	mock.Mock
}

func (m *mockCredits) ConsumeCredit(ctx context.Context, userID, accessToken string) (bool, error) {
	args := m.Called(ctx, userID, accessToken)
	return args.Bool(0), args.Error(1)
}

func webhookStub(t *testing.T, result any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req struct {
			JobURL string `json:"jobUrl"`
			UserID string `json:"userId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://jobs.example.com/posting/1", req.JobURL)
		_ = json.NewEncoder(w).Encode(result)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_ConsumesCreditAndPublishes(t *testing.T) {
	srv := webhookStub(t, map[string]any{
		"company": "Acme Corp",
		"website": "https://acme.example.com",
		"contacts": []map[string]string{
			{"name": "Jane Doe", "title": "Recruiter"},
		},
	})

	credits := &mockCredits{}
	credits.On("ConsumeCredit", mock.Anything, "user-42", "token-abc").Return(true, nil)

	hub := bus.NewMemory()
	defer hub.Close() //nolint:errcheck
	events, unsubscribe := hub.Subscribe(context.Background())
	defer unsubscribe()

	c := New(srv.URL, credits, hub, testLogger())
	result, err := c.Run(context.Background(), "user-42", "token-abc", "https://jobs.example.com/posting/1")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "Acme Corp", result.Company)
	require.Len(t, result.Contacts, 1)
	assert.Equal(t, "Jane Doe", result.Contacts[0].Name)

	credits.AssertExpectations(t)

	select {
	case ev := <-events:
		assert.Equal(t, bus.EventSearchUsed, ev)
	case <-time.After(time.Second):
		t.Fatal("search_used не опубликован")
	}
}

func TestRun_QuotaExhausted(t *testing.T) {
	srv := webhookStub(t, map[string]any{"company": "Acme Corp"})

	credits := &mockCredits{}
	credits.On("ConsumeCredit", mock.Anything, "user-42", "token-abc").Return(false, nil)

	c := New(srv.URL, credits, bus.Nop{}, testLogger())
	result, err := c.Run(context.Background(), "user-42", "token-abc", "https://jobs.example.com/posting/1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExhausted)
	assert.Nil(t, result)
}

func TestRun_WebhookFailureDoesNotConsume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	credits := &mockCredits{}

	c := New(srv.URL, credits, bus.Nop{}, testLogger())
	_, err := c.Run(context.Background(), "user-42", "token-abc", "https://jobs.example.com/posting/1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")

	credits.AssertNotCalled(t, "ConsumeCredit", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_ConsumeErrorKeepsResult(t *testing.T) {
	srv := webhookStub(t, map[string]any{"company": "Acme Corp"})

	credits := &mockCredits{}
	credits.On("ConsumeCredit", mock.Anything, "user-42", "token-abc").
		Return(false, errors.New("backend down"))

	c := New(srv.URL, credits, bus.Nop{}, testLogger())
	result, err := c.Run(context.Background(), "user-42", "token-abc", "https://jobs.example.com/posting/1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Acme Corp", result.Company)
}

func TestRun_EmptyJobURL(t *testing.T) {
	c := New("http://127.0.0.1:0", &mockCredits{}, bus.Nop{}, testLogger())
	_, err := c.Run(context.Background(), "user-42", "token-abc", "")
	require.Error(t, err)
}
