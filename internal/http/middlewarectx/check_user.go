package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/crewdoghq/crewdog-client/internal/http/response"
)

// CheckUserMiddleware сверяет userID из URL с идентификатором из токена.
// Администратору разрешено читать чужие сводки.
func CheckUserMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.CheckUserMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			requested := chi.URLParam(r, "userID")
			if requested == "" {
				next.ServeHTTP(w, r)
				return
			}

			userUID, _ := r.Context().Value(UserUID).(string)
			role, _ := r.Context().Value(Role).(string)
			if requested != userUID && role != "admin" {
				log.Error("access to foreign account denied",
					slog.String("requested", requested), slog.String("user_uid", userUID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("access denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
