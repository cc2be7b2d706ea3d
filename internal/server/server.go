// Пакет server — HTTP-сервер консоли с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на внешнем прокси.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/invaudit/portal/console-module/internal/config"
	"github.com/invaudit/portal/console-module/internal/middleware"
	"github.com/invaudit/portal/console-module/internal/ui/handlers"
	uimiddleware "github.com/invaudit/portal/console-module/internal/ui/middleware"
	"github.com/invaudit/portal/console-module/internal/ui/static"
)

// Handlers — обработчики страниц, подключаемые к маршрутам.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Inventory *handlers.InventoryHandler
	Audit     *handlers.AuditHandler
	Summary   *handlers.SummaryHandler
	UIAuth    *uimiddleware.UIAuth
}

// Server — HTTP-сервер консоли.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, h Handlers) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Служебные endpoints: проверяются Kubernetes и Prometheus напрямую
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health/live", handleLiveness)

	// Статика из embed.FS
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	// Публичные страницы: вход, регистрация, восстановление пароля
	router.Group(func(r chi.Router) {
		r.Get("/login", h.Auth.HandleLoginPage)
		r.Post("/login", h.Auth.HandleLogin)
		r.Get("/register", h.Auth.HandleRegisterPage)
		r.Post("/register", h.Auth.HandleRegister)
		r.Get("/forgot-password", h.Auth.HandleForgotPasswordPage)
		r.Post("/forgot-password", h.Auth.HandleForgotPassword)
		r.Get("/reset-password", h.Auth.HandleResetPasswordPage)
		r.Post("/reset-password", h.Auth.HandleResetPassword)
	})

	// Страницы за аутентификацией
	router.Group(func(r chi.Router) {
		r.Use(h.UIAuth.Middleware())

		r.Post("/logout", h.Auth.HandleLogout)

		r.Get("/", h.Inventory.HandleList)
		r.Get("/partials/inventory-table", h.Inventory.HandlePartial)
		r.Get("/inventory/new", h.Inventory.HandleNewForm)
		r.Post("/inventory/new", h.Inventory.HandleCreate)
		r.Get("/inventory/{id}/edit", h.Inventory.HandleEditForm)
		r.Post("/inventory/{id}/edit", h.Inventory.HandleUpdate)
		r.Post("/inventory/{id}/delete", h.Inventory.HandleDelete)

		r.Get("/audit", h.Audit.HandleList)
		r.Get("/partials/audit-table", h.Audit.HandlePartial)

		r.Get("/summary", h.Summary.HandleSummary)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// handleLiveness — GET /health/live. Процесс жив и принимает запросы;
// состояние бэкенда на liveness не влияет.
func handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
