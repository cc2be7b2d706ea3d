package backend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockBackend создаёт mock HTTP-сервер бэкенда.
func setupMockBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, testLogger())
}

// TestClient_Login проверяет Login (POST /auth/login).
func TestClient_Login(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		// Login — анонимный вызов, токена быть не должно
		if r.Header.Get("Authorization") != "" {
			t.Error("Login не должен передавать Authorization header")
		}

		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Fatalf("декодирование credentials: %v", err)
		}
		if creds["username"] != "mgr1" || creds["password"] != "x" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AuthResponse{
			Token:    "t1",
			ID:       7,
			Username: "mgr1",
			Email:    "mgr1@example.com",
			Roles:    []string{"MANAGER"},
		})
	})

	auth, err := client.Login(context.Background(), "mgr1", "x")
	if err != nil {
		t.Fatalf("Ошибка Login: %v", err)
	}

	if auth.Token != "t1" {
		t.Errorf("ожидался Token=t1, получен %s", auth.Token)
	}
	if auth.Username != "mgr1" {
		t.Errorf("ожидался Username=mgr1, получен %s", auth.Username)
	}
	if len(auth.Roles) != 1 || auth.Roles[0] != "MANAGER" {
		t.Errorf("ожидались Roles=[MANAGER], получены %v", auth.Roles)
	}
}

// TestClient_Login_BadCredentials проверяет, что 401 при login
// возвращается как ErrUnauthorized.
func TestClient_Login_BadCredentials(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Login(context.Background(), "mgr1", "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("ожидалась ErrUnauthorized, получена %v", err)
	}
}

// TestClient_BearerToken проверяет подстановку токена из контекста.
func TestClient_BearerToken(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer session-token" {
			t.Errorf("ожидался Authorization=Bearer session-token, получен %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Identity{ID: 1, Username: "user1", Roles: []string{"USER"}})
	})

	ctx := WithToken(context.Background(), "session-token")
	id, err := client.Me(ctx)
	if err != nil {
		t.Fatalf("Ошибка Me: %v", err)
	}
	if id.Username != "user1" {
		t.Errorf("ожидался Username=user1, получен %s", id.Username)
	}
}

// TestClient_NoToken проверяет, что без токена в контексте
// Authorization header отсутствует.
func TestClient_NoToken(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("не ожидался Authorization header")
		}
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Me(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("ожидалась ErrUnauthorized, получена %v", err)
	}
}

// TestClient_ApplicationError проверяет извлечение сообщения бэкенда
// из тела ошибки.
func TestClient_ApplicationError(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"status":  409,
			"error":   "Conflict",
			"message": "SKU already exists: WH-001",
			"path":    "/inventory",
		})
	})

	_, err := client.CreateItem(context.Background(), InventoryItem{SKU: "WH-001"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ожидалась *APIError, получена %v", err)
	}
	if apiErr.Status != http.StatusConflict {
		t.Errorf("ожидался Status=409, получен %d", apiErr.Status)
	}
	if apiErr.Message != "SKU already exists: WH-001" {
		t.Errorf("ожидалось сообщение бэкенда, получено %q", apiErr.Message)
	}
}

// TestClient_ApplicationError_Fallback проверяет generic сообщение
// при непарсящемся теле ошибки.
func TestClient_ApplicationError_Fallback(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>gateway error</html>"))
	})

	_, err := client.ListItems(context.Background(), PageRequest{Size: 50})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ожидалась *APIError, получена %v", err)
	}
	if apiErr.Message != "HTTP 502 Bad Gateway" {
		t.Errorf("ожидалось generic сообщение, получено %q", apiErr.Message)
	}
}

// TestClient_TransportError проверяет классификацию транспортного сбоя.
func TestClient_TransportError(t *testing.T) {
	client := New("http://localhost:1", testLogger())

	_, err := client.ListItems(context.Background(), PageRequest{Size: 50})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ожидалась *APIError, получена %v", err)
	}
	if apiErr.Status != 0 {
		t.Errorf("ожидался Status=0 для транспортного сбоя, получен %d", apiErr.Status)
	}
}

// TestClient_ListItems проверяет пагинацию и сортировку списка.
func TestClient_ListItems(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inventory" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("size") != "25" {
			t.Errorf("ожидались page=2 size=25, получены page=%s size=%s", q.Get("page"), q.Get("size"))
		}
		if q.Get("sortBy") != "sku" || q.Get("sortDir") != "ASC" {
			t.Errorf("ожидались sortBy=sku sortDir=ASC, получены %s/%s", q.Get("sortBy"), q.Get("sortDir"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Page[InventoryItem]{
			Content: []InventoryItem{
				{ID: 51, SKU: "WH-051", Name: "Bolt M6", Qty: 120, Location: "WAREHOUSE-A"},
			},
			TotalPages:    3,
			TotalElements: 51,
			Number:        2,
			Size:          25,
		})
	})

	page, err := client.ListItems(context.Background(), PageRequest{
		Page: 2, Size: 25, SortBy: "sku", SortDir: "ASC",
	})
	if err != nil {
		t.Fatalf("Ошибка ListItems: %v", err)
	}

	if page.TotalElements != 51 {
		t.Errorf("ожидался TotalElements=51, получен %d", page.TotalElements)
	}
	if len(page.Content) != 1 || page.Content[0].SKU != "WH-051" {
		t.Errorf("неожиданное содержимое страницы: %+v", page.Content)
	}
}

// TestClient_SearchItemsBySKU проверяет параметры поиска (без сортировки).
func TestClient_SearchItemsBySKU(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inventory/search/sku" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		q := r.URL.Query()
		if q.Get("pattern") != "WH-" {
			t.Errorf("ожидался pattern=WH-, получен %s", q.Get("pattern"))
		}
		if q.Get("sortBy") != "" {
			t.Error("поиск не должен передавать sortBy")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Page[InventoryItem]{
			Content:       []InventoryItem{{ID: 1, SKU: "WH-001"}},
			TotalPages:    1,
			TotalElements: 1,
		})
	})

	page, err := client.SearchItemsBySKU(context.Background(), "WH-", 0, 50)
	if err != nil {
		t.Fatalf("Ошибка SearchItemsBySKU: %v", err)
	}
	if page.TotalElements != 1 {
		t.Errorf("ожидался TotalElements=1, получен %d", page.TotalElements)
	}
}

// TestClient_LocationSummaries проверяет разбор кортежей сводки.
func TestClient_LocationSummaries(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inventory/summary/location" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[["WAREHOUSE-A", 12, 340], ["STORE-1", 3, 45]]`))
	})

	summaries, err := client.LocationSummaries(context.Background())
	if err != nil {
		t.Fatalf("Ошибка LocationSummaries: %v", err)
	}

	if len(summaries) != 2 {
		t.Fatalf("ожидалось 2 сводки, получено %d", len(summaries))
	}
	if summaries[0].Location != "WAREHOUSE-A" || summaries[0].Count != 12 || summaries[0].TotalQty != 340 {
		t.Errorf("неожиданная первая сводка: %+v", summaries[0])
	}
	if summaries[1].Location != "STORE-1" {
		t.Errorf("ожидалась локация STORE-1, получена %s", summaries[1].Location)
	}
}

// TestClient_DeleteItem проверяет DELETE с пустым телом успеха.
func TestClient_DeleteItem(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/inventory/42" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeleteItem(context.Background(), 42); err != nil {
		t.Fatalf("Ошибка DeleteItem: %v", err)
	}
}

// TestClient_EventsByUser проверяет запрос событий пользователя.
func TestClient_EventsByUser(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audit-events/user/user1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Page[AuditEvent]{
			Content: []AuditEvent{
				{ID: 1, EventType: "UPDATE", EntityType: "INVENTORY_ITEM", EntityID: 42, UserID: "user1"},
			},
			TotalPages:    1,
			TotalElements: 1,
		})
	})

	page, err := client.EventsByUser(context.Background(), "user1", PageRequest{Size: 50, SortBy: "timestamp", SortDir: "DESC"})
	if err != nil {
		t.Fatalf("Ошибка EventsByUser: %v", err)
	}
	if len(page.Content) != 1 || page.Content[0].UserID != "user1" {
		t.Errorf("неожиданное содержимое страницы: %+v", page.Content)
	}
}

// TestIdentity_HasRole проверяет предикат ролей, включая nil-идентичность.
func TestIdentity_HasRole(t *testing.T) {
	id := &Identity{Roles: []string{"MANAGER"}}

	if !id.HasRole("MANAGER") {
		t.Error("ожидалось HasRole(MANAGER)=true")
	}
	if id.HasRole("ADMIN") {
		t.Error("ожидалось HasRole(ADMIN)=false")
	}

	var absent *Identity
	if absent.HasRole("USER") {
		t.Error("nil-идентичность не должна иметь ролей")
	}
}
