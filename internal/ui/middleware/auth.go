// Пакет middleware — HTTP middleware консоли.
// auth.go — проверка UI-сессии (cookie-based) и обработка 401 от бэкенда.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/invaudit/portal/console-module/internal/backend"
	"github.com/invaudit/portal/console-module/internal/ui/auth"
)

// contextKey — тип для ключей контекста UI.
type contextKey string

const (
	// ContextKeyUISession — данные UI-сессии в контексте запроса.
	ContextKeyUISession contextKey = "ui_session"
)

// LoginPath — куда отправлять неаутентифицированные запросы.
const LoginPath = "/login"

// SessionFromContext извлекает сессию из контекста запроса.
// Возвращает nil для запросов, не прошедших через UIAuth.
func SessionFromContext(ctx context.Context) *auth.SessionData {
	session, _ := ctx.Value(ContextKeyUISession).(*auth.SessionData)
	return session
}

// IdentityResolver проверяет токен через бэкенд (GET /auth/me).
// Реализуется auth.Store.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*backend.Identity, error)
}

// UIAuth — middleware для проверки аутентификации пользователей консоли.
// Извлекает сессию из зашифрованного cookie, кладёт её и bearer-токен
// в контекст запроса, redirect на /login при отсутствии сессии.
type UIAuth struct {
	sessionManager *auth.SessionManager
	resolver       IdentityResolver
	logger         *slog.Logger
}

// NewUIAuth создаёт новый UIAuth middleware.
func NewUIAuth(sessionManager *auth.SessionManager, resolver IdentityResolver, logger *slog.Logger) *UIAuth {
	return &UIAuth{
		sessionManager: sessionManager,
		resolver:       resolver,
		logger:         logger.With(slog.String("component", "ui_auth_middleware")),
	}
}

// Middleware возвращает HTTP middleware для проверки UI-сессии.
// Применяется ко всем страницам, кроме /login, /register,
// /forgot-password, /reset-password и /static.
func (ua *UIAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Извлекаем сессию из cookie
			session, err := ua.sessionManager.GetSessionFromRequest(r)
			if err != nil {
				ua.logger.Debug("Ошибка чтения UI-сессии",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				// Повреждённый cookie — очищаем и redirect на login
				ua.sessionManager.ClearSessionCookie(w)
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}

			// 2. Если сессия отсутствует — redirect на login
			if session == nil {
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}

			// 3. Заведомо истёкший токен не отправляем на бэкенд.
			// Refresh-эндпоинта у бэкенда нет — только повторный вход.
			if session.IsExpired() {
				ua.logger.Info("Сессия истекла, redirect на login",
					slog.String("username", session.Username),
				)
				ua.sessionManager.ClearSessionCookie(w)
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}

			// 4. Cookie с токеном, но без идентичности (например, выписан
			// до обновления формата сессии) — переспрашиваем бэкенд.
			// Отказ бэкенда означает недействительный токен: teardown.
			if session.Username == "" || len(session.Roles) == 0 {
				identity, rerr := ua.resolver.Resolve(r.Context(), session.Token)
				if rerr != nil {
					ua.logger.Info("Идентичность по токену не подтверждена, сессия завершена",
						slog.String("error", rerr.Error()),
					)
					ua.sessionManager.ClearSessionCookie(w)
					http.Redirect(w, r, LoginPath, http.StatusFound)
					return
				}
				session.UserID = identity.ID
				session.Username = identity.Username
				session.Email = identity.Email
				session.Roles = identity.Roles
				if serr := ua.sessionManager.SetSessionCookie(w, session); serr != nil {
					ua.logger.Warn("Ошибка обновления session cookie",
						slog.String("error", serr.Error()),
					)
				}
			}

			// 5. Сессия в контекст UI, токен — в контекст backend-клиента
			ctx := context.WithValue(r.Context(), ContextKeyUISession, session)
			ctx = backend.WithToken(ctx, session.Token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HandleBackendError единообразно обрабатывает ошибку вызова бэкенда
// из обработчика страницы. 401 означает недействительный токен: сессия
// сносится целиком и пользователь отправляется на login. Возвращает
// true, если ответ уже записан и обработчику следует выйти.
func (ua *UIAuth) HandleBackendError(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, backend.ErrUnauthorized) {
		session := SessionFromContext(r.Context())
		username := ""
		if session != nil {
			username = session.Username
		}
		ua.logger.Info("Бэкенд отверг токен, сессия завершена",
			slog.String("username", username),
		)
		ua.sessionManager.ClearSessionCookie(w)
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return true
	}
	return false
}
