// Package consume реализует HTTP-обработчик списания поискового кредита.
package consume

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/crewdoghq/crewdog-client/internal/bus"
	"github.com/crewdoghq/crewdog-client/internal/http/response"
	"github.com/crewdoghq/crewdog-client/internal/lib/sl"
)

// Request — структура входных данных для списания кредита.
type Request struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// Service описывает интерфейс списания кредита.
type Service interface {
	ConsumeCredit(ctx context.Context, userUID string) (bool, error)
}

// Handler обрабатывает запросы списания кредита.
type Handler struct {
	log      *slog.Logger
	service  Service
	activity bus.Bus
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, activity bus.Bus) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		activity: activity,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Списание поискового кредита
// @Description Атомарно списывает один кредит. Ответ {"ok":false} означает исчерпанную квоту.
// @Tags Account
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор пользователя"
// @Success 200 {object} map[string]bool "Результат списания"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /account/consume [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.consume"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	ok, err := h.service.ConsumeCredit(r.Context(), req.UserID)
	if err != nil {
		log.Error("failed to consume credit", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	if ok {
		if err := h.activity.Publish(r.Context(), bus.EventQuotaChanged); err != nil {
			log.Warn("publish quota_changed failed", sl.Err(err))
		}
	}

	log.Info("credit consume handled", slog.String("user_id", req.UserID), slog.Bool("ok", ok))
	render.JSON(w, r, map[string]bool{"ok": ok})
}
