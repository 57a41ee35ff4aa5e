// Package devserver собирает локальный бэкенд квоты и идентификации,
// на который клиент ходит при разработке без боевых коллабораторов.
package devserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/crewdoghq/crewdog-client/internal/bus"
	"github.com/crewdoghq/crewdog-client/internal/config"
	"github.com/crewdoghq/crewdog-client/internal/lib/jwt"
	"github.com/crewdoghq/crewdog-client/internal/lib/sl"
	"github.com/crewdoghq/crewdog-client/internal/migrations"
	"github.com/crewdoghq/crewdog-client/internal/services/identity"
	"github.com/crewdoghq/crewdog-client/internal/storage"
)

// App — dev-бэкенд с HTTP-сервером и хранилищем.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *storage.Storage
	activity bus.Bus
}

// New инициализирует хранилище, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	// Шина нужна бэкенду для publish quota_changed при списании кредита.
	// Redis доставит событие и клиентам в других процессах.
	var activity bus.Bus
	if cfg.Backend == "redis" {
		activity, err = bus.NewRedis(ctx, cfg.RedisConnection, logger)
		if err != nil {
			logger.Warn("redis bus unavailable, falling back to nop", sl.Err(err))
			activity = bus.Nop{}
		}
	} else {
		activity = bus.NewMemory()
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	identityService := identity.New(db, jwtMaker)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, identityService, db, activity)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		activity: activity,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.activity.Close()
		_ = a.db.DB.Close()
		return err
	}
}
