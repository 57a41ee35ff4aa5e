package account

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdoghq/crewdog-client/internal/services/summary"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestGuestSummary(t *testing.T) {
	got := GuestSummary()

	assert.False(t, got.Pro)
	assert.False(t, got.Unlimited)
	assert.Equal(t, summary.FreeCap, got.Cap)
	assert.Equal(t, 0, got.Used)
	require.NotNil(t, got.Remaining)
	assert.Equal(t, summary.FreeCap, *got.Remaining)
	assert.Equal(t, "none", got.Status)
}

func TestFetchSummary_EmptyUserID(t *testing.T) {
	svc := New("http://127.0.0.1:0", testLogger())

	got := svc.FetchSummary(context.Background(), "", "")
	assert.Equal(t, GuestSummary(), got)
}

func TestFetchSummary_Success(t *testing.T) {
	var gotPath, gotAuth string
	var gotCacheBuster bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotCacheBuster = r.URL.Query().Get("t") != ""
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":           "active",
			"cap":              25,
			"creditsRemaining": 20,
		})
	}))
	defer srv.Close()

	svc := New(srv.URL, testLogger())
	got := svc.FetchSummary(context.Background(), "user-42", "token-abc")

	assert.Equal(t, "/account/summary/user-42", gotPath)
	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.True(t, gotCacheBuster, "запрос должен нести кэш-бастер")

	assert.True(t, got.Pro)
	assert.Equal(t, 25, got.Cap)
	assert.Equal(t, 5, got.Used)
	require.NotNil(t, got.Remaining)
	assert.Equal(t, 20, *got.Remaining)
}

func TestFetchSummary_ServerErrorFallsBackToGuest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := New(srv.URL, testLogger())
	got := svc.FetchSummary(context.Background(), "user-42", "token-abc")

	assert.Equal(t, GuestSummary(), got)
}

func TestFetchSummary_UnreachableBackendFallsBackToGuest(t *testing.T) {
	svc := New("http://127.0.0.1:1", testLogger())

	got := svc.FetchSummary(context.Background(), "user-42", "")
	assert.Equal(t, GuestSummary(), got)
}

func TestFetchSummary_MalformedBodyNormalizesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	svc := New(srv.URL, testLogger())
	got := svc.FetchSummary(context.Background(), "user-42", "")

	// Пустая сырая сводка: бесплатный план, квота не тронута.
	assert.False(t, got.Pro)
	assert.Equal(t, summary.FreeCap, got.Cap)
	assert.Equal(t, 0, got.Used)
	require.NotNil(t, got.Remaining)
	assert.Equal(t, summary.FreeCap, *got.Remaining)
	assert.Equal(t, "none", got.Status)
}

func TestConsumeCredit(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr bool
	}{
		{name: "credit consumed", status: http.StatusOK, body: `{"ok":true}`, want: true},
		{name: "quota exhausted", status: http.StatusOK, body: `{"ok":false}`, want: false},
		{name: "server error", status: http.StatusInternalServerError, body: ``, wantErr: true},
		{name: "malformed body", status: http.StatusOK, body: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/account/consume", r.URL.Path)

				var req struct {
					UserID string `json:"user_id"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "user-42", req.UserID)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			svc := New(srv.URL, testLogger())
			got, err := svc.ConsumeCredit(context.Background(), "user-42", "token-abc")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
