package register

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Register(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(m *mockService)
		wantStatus int
		wantInBody string
	}{
		{
			name: "успешная регистрация",
			body: `{"email":"jane@example.com","password":"password123"}`,
			setupMock: func(m *mockService) {
				m.On("Register", mock.Anything, "jane@example.com", "password123").
					Return("7c9e6679-7425-40de-944b-e07fc1f90ae7", nil)
			},
			wantStatus: http.StatusCreated,
			wantInBody: "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		},
		{
			name: "ошибка хранилища",
			body: `{"email":"jane@example.com","password":"password123"}`,
			setupMock: func(m *mockService) {
				m.On("Register", mock.Anything, "jane@example.com", "password123").
					Return("", errors.New("duplicate email"))
			},
			wantStatus: http.StatusInternalServerError,
			wantInBody: "failed to register user",
		},
		{
			name:       "битый JSON",
			body:       `{`,
			setupMock:  func(*mockService) {},
			wantStatus: http.StatusBadRequest,
			wantInBody: "invalid request body",
		},
		{
			name:       "пустой email",
			body:       `{"password":"password123"}`,
			setupMock:  func(*mockService) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantInBody: "Email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			tt.setupMock(svc)
			handler := New(testLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantInBody)
			svc.AssertExpectations(t)
		})
	}
}
