// models.go — типы данных REST API бэкенда инвентаризации.
// Все типы — read-модели: консоль их не мутирует, только заменяет целиком
// при повторной загрузке страницы.
package backend

import (
	"encoding/json"
	"fmt"
)

// Page — страница результатов от бэкенда (Spring Data формат).
// Консоль не кэширует страницы между запросами.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalPages    int `json:"totalPages"`
	TotalElements int `json:"totalElements"`
	Number        int `json:"number"`
	Size          int `json:"size"`
}

// InventoryItem — позиция инвентаря. SKU уникален и неизменяем после создания.
type InventoryItem struct {
	ID        int64  `json:"id,omitempty"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	Location  string `json:"location"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// AuditEvent — событие аудита. Append-only на стороне бэкенда,
// консоль читает без модификации.
type AuditEvent struct {
	ID         int64  `json:"id"`
	EventType  string `json:"eventType"` // CREATE, UPDATE, DELETE, READ
	EntityType string `json:"entityType"`
	EntityID   int64  `json:"entityId"`
	UserID     string `json:"userId,omitempty"`
	Details    string `json:"details,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// AuthResponse — ответ POST /auth/login.
type AuthResponse struct {
	Token    string   `json:"token"`
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// Identity — ответ GET /auth/me: текущий аутентифицированный пользователь.
type Identity struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// HasRole проверяет членство в роли. Безопасен для nil-идентичности:
// отсутствующая сессия не имеет ролей.
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RegisterRequest — тело POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LocationSummary — сводка по одной локации из GET /inventory/summary/location.
// Бэкенд возвращает массив кортежей [location, count, totalQty].
type LocationSummary struct {
	Location string
	Count    int64
	TotalQty int64
}

// UnmarshalJSON разбирает кортеж [location, count, totalQty].
func (s *LocationSummary) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("разбор кортежа сводки: %w", err)
	}
	if len(tuple) != 3 {
		return fmt.Errorf("кортеж сводки: ожидалось 3 элемента, получено %d", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &s.Location); err != nil {
		return fmt.Errorf("кортеж сводки: location: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &s.Count); err != nil {
		return fmt.Errorf("кортеж сводки: count: %w", err)
	}
	if err := json.Unmarshal(tuple[2], &s.TotalQty); err != nil {
		return fmt.Errorf("кортеж сводки: totalQty: %w", err)
	}
	return nil
}
