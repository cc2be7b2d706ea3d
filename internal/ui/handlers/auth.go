// auth.go — вход, регистрация и восстановление пароля.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/invaudit/portal/console-module/internal/backend"
	"github.com/invaudit/portal/console-module/internal/domain/rbac"
	"github.com/invaudit/portal/console-module/internal/ui/auth"
	uimiddleware "github.com/invaudit/portal/console-module/internal/ui/middleware"
	"github.com/invaudit/portal/console-module/internal/ui/views"
)

// AuthHandler — обработчики аутентификации консоли.
type AuthHandler struct {
	store  *auth.Store
	views  *views.Renderer
	logger *slog.Logger
}

// NewAuthHandler создаёт новый AuthHandler.
func NewAuthHandler(store *auth.Store, renderer *views.Renderer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		store:  store,
		views:  renderer,
		logger: logger.With(slog.String("component", "ui_auth")),
	}
}

// HandleLoginPage — GET /login.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.views.Page(w, "login.tmpl", views.LoginData{
		Flash: r.URL.Query().Get("flash"),
	})
}

// HandleLogin — POST /login.
// При ошибке форма рендерится заново с сообщением; cookie не трогается.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	username := trimmed(r.PostForm, "username")
	password := r.PostForm.Get("password")

	_, err := h.store.Login(r.Context(), w, username, password)
	if err != nil {
		h.views.Page(w, "login.tmpl", views.LoginData{
			Error:    loginErrorMessage(err),
			Username: username,
		})
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleRegisterPage — GET /register.
func (h *AuthHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.views.Page(w, "register.tmpl", views.RegisterData{
		Role:  rbac.RoleUser,
		Roles: rbac.Roles(),
	})
}

// HandleRegister — POST /register.
// Успешная регистрация сразу выполняет вход. Ошибка на шаге входа
// возвращается как есть: учётная запись уже создана.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	data := views.RegisterData{
		Username: trimmed(r.PostForm, "username"),
		Email:    trimmed(r.PostForm, "email"),
		Role:     r.PostForm.Get("role"),
		Roles:    rbac.Roles(),
	}
	password := r.PostForm.Get("password")

	if data.Username == "" {
		data.Errors = append(data.Errors, "Username is required")
	}
	if data.Email == "" {
		data.Errors = append(data.Errors, "Email is required")
	}
	if password == "" {
		data.Errors = append(data.Errors, "Password is required")
	}
	if !rbac.IsValidRole(data.Role) {
		data.Errors = append(data.Errors, "Role is invalid")
	}
	if len(data.Errors) > 0 {
		h.views.Page(w, "register.tmpl", data)
		return
	}

	_, err := h.store.Register(r.Context(), w, backend.RegisterRequest{
		Username: data.Username,
		Email:    data.Email,
		Password: password,
		Role:     data.Role,
	})
	if err != nil {
		data.Error = loginErrorMessage(err)
		h.views.Page(w, "register.tmpl", data)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout — POST /logout.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token := ""
	if session := uimiddleware.SessionFromContext(r.Context()); session != nil {
		token = session.Token
	}
	h.store.Logout(r.Context(), w, token)
	http.Redirect(w, r, uimiddleware.LoginPath, http.StatusFound)
}

// HandleForgotPasswordPage — GET /forgot-password.
func (h *AuthHandler) HandleForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.views.Page(w, "forgot_password.tmpl", views.ForgotPasswordData{})
}

// HandleForgotPassword — POST /forgot-password.
// Ответ одинаков для существующих и несуществующих учётных записей.
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	email := trimmed(r.PostForm, "email")

	data := views.ForgotPasswordData{}
	if email == "" {
		data.Error = "Email is required"
		h.views.Page(w, "forgot_password.tmpl", data)
		return
	}

	if err := h.store.ForgotPassword(r.Context(), email); err != nil {
		h.logger.Warn("Ошибка запроса сброса пароля", slog.String("error", err.Error()))
	}
	data.Flash = "If the account exists, a password reset link has been sent"
	h.views.Page(w, "forgot_password.tmpl", data)
}

// HandleResetPasswordPage — GET /reset-password?token=...
func (h *AuthHandler) HandleResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.views.Page(w, "reset_password.tmpl", views.ResetPasswordData{
		Token: r.URL.Query().Get("token"),
	})
}

// HandleResetPassword — POST /reset-password.
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	token := r.PostForm.Get("token")
	password := r.PostForm.Get("password")

	data := views.ResetPasswordData{Token: token}
	if password == "" {
		data.Error = "Password is required"
		h.views.Page(w, "reset_password.tmpl", data)
		return
	}

	if err := h.store.ResetPassword(r.Context(), token, password); err != nil {
		data.Error = errorMessage(err)
		h.views.Page(w, "reset_password.tmpl", data)
		return
	}

	http.Redirect(w, r, uimiddleware.LoginPath+"?flash=Password+updated,+please+sign+in", http.StatusFound)
}

// loginErrorMessage скрывает детали 401 за нейтральным сообщением,
// прикладные ошибки показываются как есть.
func loginErrorMessage(err error) string {
	if errors.Is(err, backend.ErrUnauthorized) {
		return "Invalid username or password"
	}
	return errorMessage(err)
}
