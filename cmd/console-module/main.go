// Точка входа консоли инвентаризации.
// Загружает конфигурацию, создаёт клиент бэкенда, менеджер сессий и
// обработчики страниц, запускает мониторинг зависимостей и HTTP-сервер
// с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/invaudit/portal/console-module/internal/backend"
	"github.com/invaudit/portal/console-module/internal/config"
	"github.com/invaudit/portal/console-module/internal/server"
	"github.com/invaudit/portal/console-module/internal/service"
	"github.com/invaudit/portal/console-module/internal/ui/auth"
	uihandlers "github.com/invaudit/portal/console-module/internal/ui/handlers"
	uimiddleware "github.com/invaudit/portal/console-module/internal/ui/middleware"
	"github.com/invaudit/portal/console-module/internal/ui/query"
	"github.com/invaudit/portal/console-module/internal/ui/views"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Консоль запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("backend_url", cfg.BackendURL),
	)

	// 3. Клиент бэкенда инвентаризации
	client := backend.NewWithTimeout(cfg.BackendURL, cfg.BackendTimeout, logger)

	// 4. Менеджер сессий (AES-256-GCM cookie)
	secureCookie := cfg.SessionSecure || strings.HasPrefix(cfg.BackendURL, "https")
	sessionMgr, err := auth.NewSessionManager(cfg.SessionSecret, secureCookie)
	if err != nil {
		logger.Error("Ошибка создания Session Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("CM_SESSION_SECRET не задан, сессии не сохраняются между рестартами")
	}

	authStore := auth.NewStore(client, sessionMgr, logger)

	// 5. Рендерер шаблонов
	renderer, err := views.New(logger)
	if err != nil {
		logger.Error("Ошибка разбора шаблонов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Middleware и обработчики страниц
	uiAuth := uimiddleware.NewUIAuth(sessionMgr, authStore, logger)
	dispatcher := &query.Dispatcher{}

	h := server.Handlers{
		Auth:      uihandlers.NewAuthHandler(authStore, renderer, logger),
		Inventory: uihandlers.NewInventoryHandler(client, renderer, uiAuth, dispatcher, logger),
		Audit:     uihandlers.NewAuditHandler(client, renderer, uiAuth, dispatcher, logger),
		Summary:   uihandlers.NewSummaryHandler(client, renderer, uiAuth, logger),
		UIAuth:    uiAuth,
	}

	// 7. topologymetrics — мониторинг зависимости (inventory backend)
	ctx := context.Background()
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"console-module",
		"invaudit",
		cfg.BackendURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 8. HTTP-сервер с graceful shutdown
	srv := server.New(cfg, logger, h)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
