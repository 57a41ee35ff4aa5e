// Package summary реализует HTTP-обработчик выдачи сводки аккаунта.
//
// Ответ намеренно сырой и не завернут в общий конверт: это внешний контракт
// бэкенда квоты, который клиент разбирает своим нормализатором. Имена полей
// повторяют исторический формат с алиасами.
package summary

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/crewdoghq/crewdog-client/internal/http/response"
	"github.com/crewdoghq/crewdog-client/internal/lib/sl"
	"github.com/crewdoghq/crewdog-client/internal/models"
	"github.com/crewdoghq/crewdog-client/internal/storage"
)

// Service описывает интерфейс чтения квоты аккаунта.
type Service interface {
	GetQuota(ctx context.Context, userUID string) (*models.AccountQuota, error)
}

// Handler обрабатывает запросы сводки аккаунта.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Сводка аккаунта
// @Description Возвращает сырую сводку квоты пользователя.
// @Tags Account
// @Produce  json
// @Param userID path string true "Идентификатор пользователя"
// @Success 200 {object} map[string]any "Сырая сводка аккаунта"
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /account/summary/{userID} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.summary"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := chi.URLParam(r, "userID")
	quota, err := h.service.GetQuota(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrQuotaNotFound) {
			log.Error("quota not found", slog.String("user_id", userID))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("account not found"))
			return
		}
		log.Error("failed to read quota", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	raw := map[string]any{
		"status":            quota.Status,
		"searchCap":         quota.SearchCap,
		"used":              quota.Used,
		"unlimited":         quota.Unlimited,
		"isAdmin":           quota.IsAdmin,
		"freeTryUsed":       quota.FreeTryUsed,
		"cancelAtPeriodEnd": quota.CancelAtPeriodEnd,
	}
	if quota.RenewalDate != nil {
		raw["renewalDate"] = quota.RenewalDate.Format("2006-01-02")
	} else {
		raw["renewalDate"] = nil
	}

	log.Info("summary served", slog.String("user_id", userID))
	render.JSON(w, r, raw)
}
