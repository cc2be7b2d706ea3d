package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/invaudit/portal/console-module/internal/backend"
)

// Store — хранилище аутентификации консоли.
// Выполняет login/register/logout через inventory-бэкенд и
// материализует результат в зашифрованный session cookie.
type Store struct {
	client   *backend.Client
	sessions *SessionManager
	logger   *slog.Logger
}

// NewStore создаёт Store поверх backend-клиента и менеджера сессий.
func NewStore(client *backend.Client, sessions *SessionManager, logger *slog.Logger) *Store {
	return &Store{
		client:   client,
		sessions: sessions,
		logger:   logger.With("component", "auth-store"),
	}
}

// Sessions возвращает менеджер сессий (для middleware).
func (s *Store) Sessions() *SessionManager {
	return s.sessions
}

// Login аутентифицирует пользователя в бэкенде и при успехе
// устанавливает session cookie. При ошибке cookie не трогается.
func (s *Store) Login(ctx context.Context, w http.ResponseWriter, username, password string) (*SessionData, error) {
	resp, err := s.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	data := sessionFromAuth(resp)
	if err := s.sessions.SetSessionCookie(w, data); err != nil {
		return nil, fmt.Errorf("ошибка установки session cookie: %w", err)
	}

	s.logger.Info("пользователь вошёл в систему",
		"username", data.Username,
		"roles", data.Roles)

	return data, nil
}

// Register регистрирует пользователя и сразу выполняет вход.
// Ошибка на шаге логина возвращается как есть: учётная запись
// к этому моменту уже создана, отката нет.
func (s *Store) Register(ctx context.Context, w http.ResponseWriter, req backend.RegisterRequest) (*SessionData, error) {
	if err := s.client.Register(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("зарегистрирован новый пользователь", "username", req.Username)

	return s.Login(ctx, w, req.Username, req.Password)
}

// Logout завершает сессию: уведомляет бэкенд (best-effort) и
// безусловно очищает session cookie.
func (s *Store) Logout(ctx context.Context, w http.ResponseWriter, token string) {
	if token != "" {
		if err := s.client.Logout(backend.WithToken(ctx, token)); err != nil {
			s.logger.Warn("ошибка logout на бэкенде", "error", err)
		}
	}

	s.sessions.ClearSessionCookie(w)
	s.logger.Info("сессия завершена")
}

// Resolve запрашивает у бэкенда идентичность владельца токена.
// Используется для проверки, что токен всё ещё действителен.
func (s *Store) Resolve(ctx context.Context, token string) (*backend.Identity, error) {
	return s.client.Me(backend.WithToken(ctx, token))
}

// ForgotPassword запрашивает сброс пароля на указанный email.
func (s *Store) ForgotPassword(ctx context.Context, email string) error {
	return s.client.ForgotPassword(ctx, email)
}

// ResetPassword завершает сброс пароля по выданному токену.
func (s *Store) ResetPassword(ctx context.Context, token, newPassword string) error {
	return s.client.ResetPassword(ctx, token, newPassword)
}

// sessionFromAuth строит SessionData из ответа бэкенда на login.
func sessionFromAuth(resp *backend.AuthResponse) *SessionData {
	return &SessionData{
		Token:     resp.Token,
		UserID:    resp.ID,
		Username:  resp.Username,
		Email:     resp.Email,
		Roles:     resp.Roles,
		ExpiresAt: tokenExpiry(resp.Token),
	}
}

// tokenExpiry извлекает exp из JWT без проверки подписи.
// Подпись проверяет бэкенд; консоли нужен только срок действия,
// чтобы не отправлять заведомо протухший токен.
// Возвращает 0, если токен не JWT или не содержит exp.
func tokenExpiry(token string) int64 {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return 0
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.Unix()
}
