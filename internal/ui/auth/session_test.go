package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestSessionEncryptDecryptRoundTrip проверяет шифрование и дешифрование SessionData.
func TestSessionEncryptDecryptRoundTrip(t *testing.T) {
	sm, err := NewSessionManager("", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}

	original := &SessionData{
		Token:     "bearer-token-12345",
		UserID:    7,
		Username:  "manager1",
		Email:     "manager1@example.com",
		Roles:     []string{"MANAGER"},
		ExpiresAt: time.Now().Add(5 * time.Minute).Unix(),
	}

	// Шифруем
	encrypted, err := sm.Encrypt(original)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	if encrypted == "" {
		t.Fatal("Зашифрованная строка пустая")
	}

	// Дешифруем
	decrypted, err := sm.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Ошибка дешифрования: %v", err)
	}

	// Сравниваем поля
	if decrypted.Token != original.Token {
		t.Errorf("Token: want %q, got %q", original.Token, decrypted.Token)
	}
	if decrypted.UserID != original.UserID {
		t.Errorf("UserID: want %d, got %d", original.UserID, decrypted.UserID)
	}
	if decrypted.Username != original.Username {
		t.Errorf("Username: want %q, got %q", original.Username, decrypted.Username)
	}
	if decrypted.Email != original.Email {
		t.Errorf("Email: want %q, got %q", original.Email, decrypted.Email)
	}
	if decrypted.ExpiresAt != original.ExpiresAt {
		t.Errorf("ExpiresAt: want %d, got %d", original.ExpiresAt, decrypted.ExpiresAt)
	}
	if len(decrypted.Roles) != 1 || decrypted.Roles[0] != "MANAGER" {
		t.Errorf("Roles: want [MANAGER], got %v", decrypted.Roles)
	}
}

// TestSessionDecryptWithWrongKey проверяет, что сессия, зашифрованная одним
// ключом, не дешифруется другим.
func TestSessionDecryptWithWrongKey(t *testing.T) {
	sm1, err := NewSessionManager("first-key", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}
	sm2, err := NewSessionManager("second-key", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}

	encrypted, err := sm1.Encrypt(&SessionData{Token: "t1", Username: "user1"})
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	if _, err := sm2.Decrypt(encrypted); err == nil {
		t.Error("Ожидалась ошибка дешифрования чужим ключом")
	}
}

// TestSessionDecryptGarbage проверяет устойчивость к повреждённым cookie.
func TestSessionDecryptGarbage(t *testing.T) {
	sm, err := NewSessionManager("key", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}

	for _, value := range []string{"", "not-base64!!!", "YWJj"} {
		if _, err := sm.Decrypt(value); err == nil {
			t.Errorf("Ожидалась ошибка дешифрования для %q", value)
		}
	}
}

// TestSessionCookieRoundTrip проверяет установку и чтение session cookie.
func TestSessionCookieRoundTrip(t *testing.T) {
	sm, err := NewSessionManager("cookie-key", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}

	data := &SessionData{Token: "tok", UserID: 3, Username: "admin1", Roles: []string{"ADMIN"}}

	rec := httptest.NewRecorder()
	if err := sm.SetSessionCookie(rec, data); err != nil {
		t.Fatalf("Ошибка установки cookie: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Ожидался 1 cookie, получено %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != SessionCookieName {
		t.Errorf("Имя cookie: want %q, got %q", SessionCookieName, cookie.Name)
	}
	if cookie.Path != "/" {
		t.Errorf("Path cookie: want /, got %q", cookie.Path)
	}
	if !cookie.HttpOnly {
		t.Error("Cookie должен быть HttpOnly")
	}

	// Читаем обратно через запрос
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	got, err := sm.GetSessionFromRequest(req)
	if err != nil {
		t.Fatalf("Ошибка чтения сессии из запроса: %v", err)
	}
	if got.Username != "admin1" || got.UserID != 3 {
		t.Errorf("Сессия из запроса не совпадает: %+v", got)
	}
}

// TestGetSessionFromRequestNoCookie проверяет поведение без cookie.
func TestGetSessionFromRequestNoCookie(t *testing.T) {
	sm, err := NewSessionManager("key", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	data, err := sm.GetSessionFromRequest(req)
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if data != nil {
		t.Errorf("Ожидался nil без cookie, получено %+v", data)
	}
}

// TestClearSessionCookie проверяет удаление cookie при logout.
func TestClearSessionCookie(t *testing.T) {
	sm, err := NewSessionManager("key", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}

	rec := httptest.NewRecorder()
	sm.ClearSessionCookie(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Ожидался 1 cookie, получено %d", len(cookies))
	}
	if cookies[0].MaxAge != -1 {
		t.Errorf("MaxAge: want -1, got %d", cookies[0].MaxAge)
	}
	if cookies[0].Value != "" {
		t.Errorf("Значение cookie должно быть пустым, got %q", cookies[0].Value)
	}
}

// TestSessionIsExpired проверяет буфер в 30 секунд и токены без exp.
func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt int64
		want      bool
	}{
		{"истёкший токен", time.Now().Add(-time.Minute).Unix(), true},
		{"истекает через 10 секунд", time.Now().Add(10 * time.Second).Unix(), true},
		{"истекает через 5 минут", time.Now().Add(5 * time.Minute).Unix(), false},
		{"срок неизвестен", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &SessionData{ExpiresAt: tt.expiresAt}
			if got := s.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
