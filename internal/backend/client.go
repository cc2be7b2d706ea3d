// Пакет backend — HTTP-клиент (API gateway) к REST-бэкенду инвентаризации.
// Единая точка исходящих запросов: подстановка bearer-токена из контекста,
// нормализация ошибок (errors.go), без ретраев — каждый вызов at-most-once.
// Операции: auth (login/register/me/logout/forgot/reset), inventory
// (список/поиск/сводка/CRUD), audit-events (список/фильтры).
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// tokenKey — ключ контекста для bearer-токена текущей сессии.
type tokenKey struct{}

// WithToken кладёт bearer-токен сессии в контекст запроса.
// Устанавливается UI auth middleware для всех защищённых маршрутов.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext извлекает bearer-токен из контекста.
// Пустая строка — анонимный вызов (login, register и т.п.).
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// PageRequest — параметры пагинации и сортировки списочных запросов.
type PageRequest struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string // ASC или DESC
}

// values кодирует PageRequest в query string бэкенда.
func (p PageRequest) values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("size", strconv.Itoa(p.Size))
	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
		v.Set("sortDir", p.SortDir)
	}
	return v
}

// Client — HTTP-клиент к бэкенду инвентаризации.
type Client struct {
	baseURL    string // базовый URL без trailing slash
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент бэкенда с таймаутом запросов по умолчанию (30s).
// baseURL — базовый URL REST API (например, http://inventory-api:8080/api).
func New(baseURL string, logger *slog.Logger) *Client {
	return NewWithTimeout(baseURL, 30*time.Second, logger)
}

// NewWithTimeout создаёт клиент бэкенда с явным таймаутом запросов.
func NewWithTimeout(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "backend_client")),
	}
}

// do выполняет запрос к бэкенду и классифицирует ответ.
// target == nil — тело успешного ответа не декодируется (DELETE).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, target any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("сериализация тела запроса: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("создание запроса %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Bearer-токен текущей сессии (если есть)
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Транспортный сбой: запрос не дошёл до бэкенда.
		// Для пользователя — generic сообщение, деталь в лог.
		c.logger.Warn("Бэкенд недоступен",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return &APIError{Status: 0, Message: "Inventory service is unreachable"}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.applicationError(resp)
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("декодирование ответа %s %s: %w", method, path, err)
		}
	}

	return nil
}

// applicationError строит *APIError из тела ответа бэкенда.
// Если тело не парсится — generic сообщение по HTTP-статусу.
func (c *Client) applicationError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(resp.Body)

	var body apiErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return &APIError{Status: resp.StatusCode, Message: body.Message}
	}

	return &APIError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

// --- Auth API ---

// Login обменивает credentials на токен и идентичность.
// POST /auth/login — анонимный вызов.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	var auth AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil,
		map[string]string{"username": username, "password": password}, &auth)
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

// Register создаёт учётную запись. POST /auth/register.
// Бэкенд возвращает 201 с сообщением; консоль её не использует —
// после успеха выполняется обычный Login.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/register", nil, req, nil)
}

// Me разрешает токен в идентичность. GET /auth/me.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Logout сообщает бэкенду о выходе. POST /auth/logout.
// В stateless JWT-схеме носит уведомительный характер.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// ForgotPassword запрашивает письмо для сброса пароля. POST /auth/forgot-password.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", nil,
		map[string]string{"email": email}, nil)
}

// ResetPassword завершает сброс пароля по одноразовому токену.
// POST /auth/reset-password.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	return c.do(ctx, http.MethodPost, "/auth/reset-password", nil,
		map[string]string{"token": token, "newPassword": newPassword}, nil)
}

// --- Inventory API ---

// ListItems возвращает страницу позиций. GET /inventory.
func (c *Client) ListItems(ctx context.Context, pr PageRequest) (*Page[InventoryItem], error) {
	var page Page[InventoryItem]
	if err := c.do(ctx, http.MethodGet, "/inventory", pr.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetItem возвращает позицию по ID. GET /inventory/{id}.
func (c *Client) GetItem(ctx context.Context, id int64) (*InventoryItem, error) {
	var item InventoryItem
	if err := c.do(ctx, http.MethodGet, "/inventory/"+strconv.FormatInt(id, 10), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemBySKU возвращает позицию по SKU. GET /inventory/sku/{sku}.
func (c *Client) GetItemBySKU(ctx context.Context, sku string) (*InventoryItem, error) {
	var item InventoryItem
	if err := c.do(ctx, http.MethodGet, "/inventory/sku/"+url.PathEscape(sku), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItemsByLocation возвращает страницу позиций локации.
// GET /inventory/location/{loc}.
func (c *Client) ListItemsByLocation(ctx context.Context, location string, pr PageRequest) (*Page[InventoryItem], error) {
	var page Page[InventoryItem]
	path := "/inventory/location/" + url.PathEscape(location)
	if err := c.do(ctx, http.MethodGet, path, pr.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SearchItemsBySKU ищет позиции по шаблону SKU. GET /inventory/search/sku.
// Поисковые запросы бэкенда не принимают сортировку.
func (c *Client) SearchItemsBySKU(ctx context.Context, pattern string, page, size int) (*Page[InventoryItem], error) {
	return c.searchItems(ctx, "/inventory/search/sku", pattern, page, size)
}

// SearchItemsByName ищет позиции по шаблону имени. GET /inventory/search/name.
func (c *Client) SearchItemsByName(ctx context.Context, pattern string, page, size int) (*Page[InventoryItem], error) {
	return c.searchItems(ctx, "/inventory/search/name", pattern, page, size)
}

func (c *Client) searchItems(ctx context.Context, path, pattern string, page, size int) (*Page[InventoryItem], error) {
	q := url.Values{}
	q.Set("pattern", pattern)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var result Page[InventoryItem]
	if err := c.do(ctx, http.MethodGet, path, q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LocationSummaries возвращает сводку по локациям.
// GET /inventory/summary/location — массив кортежей [location, count, totalQty].
func (c *Client) LocationSummaries(ctx context.Context) ([]LocationSummary, error) {
	var summaries []LocationSummary
	if err := c.do(ctx, http.MethodGet, "/inventory/summary/location", nil, nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// CreateItem создаёт позицию. POST /inventory.
func (c *Client) CreateItem(ctx context.Context, item InventoryItem) (*InventoryItem, error) {
	var created InventoryItem
	if err := c.do(ctx, http.MethodPost, "/inventory", nil, item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateItemsBatch создаёт несколько позиций одним запросом. POST /inventory/batch.
func (c *Client) CreateItemsBatch(ctx context.Context, items []InventoryItem) ([]InventoryItem, error) {
	var created []InventoryItem
	if err := c.do(ctx, http.MethodPost, "/inventory/batch", nil, items, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateItem обновляет позицию. PUT /inventory/{id}.
func (c *Client) UpdateItem(ctx context.Context, id int64, item InventoryItem) (*InventoryItem, error) {
	var updated InventoryItem
	path := "/inventory/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodPut, path, nil, item, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteItem удаляет позицию. DELETE /inventory/{id} — успех без тела.
func (c *Client) DeleteItem(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/inventory/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// --- Audit API ---

// ListEvents возвращает страницу событий аудита. GET /audit-events.
func (c *Client) ListEvents(ctx context.Context, pr PageRequest) (*Page[AuditEvent], error) {
	return c.eventsPage(ctx, "/audit-events", pr)
}

// GetEvent возвращает событие по ID. GET /audit-events/{id}.
func (c *Client) GetEvent(ctx context.Context, id int64) (*AuditEvent, error) {
	var event AuditEvent
	path := "/audit-events/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// EventsByEntity возвращает события конкретной сущности.
// GET /audit-events/entity/{type}/{id}.
func (c *Client) EventsByEntity(ctx context.Context, entityType string, entityID int64, pr PageRequest) (*Page[AuditEvent], error) {
	path := "/audit-events/entity/" + url.PathEscape(entityType) + "/" + strconv.FormatInt(entityID, 10)
	return c.eventsPage(ctx, path, pr)
}

// EventsByEntityType возвращает события по типу сущности.
// GET /audit-events/entity-type/{type}.
func (c *Client) EventsByEntityType(ctx context.Context, entityType string, pr PageRequest) (*Page[AuditEvent], error) {
	return c.eventsPage(ctx, "/audit-events/entity-type/"+url.PathEscape(entityType), pr)
}

// EventsByEventType возвращает события по типу события.
// GET /audit-events/event-type/{type}.
func (c *Client) EventsByEventType(ctx context.Context, eventType string, pr PageRequest) (*Page[AuditEvent], error) {
	return c.eventsPage(ctx, "/audit-events/event-type/"+url.PathEscape(eventType), pr)
}

// EventsByUser возвращает события пользователя. GET /audit-events/user/{userId}.
func (c *Client) EventsByUser(ctx context.Context, userID string, pr PageRequest) (*Page[AuditEvent], error) {
	return c.eventsPage(ctx, "/audit-events/user/"+url.PathEscape(userID), pr)
}

// CreateEvent регистрирует событие аудита вручную. POST /audit-events.
func (c *Client) CreateEvent(ctx context.Context, event AuditEvent) (*AuditEvent, error) {
	var created AuditEvent
	if err := c.do(ctx, http.MethodPost, "/audit-events", nil, event, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) eventsPage(ctx context.Context, path string, pr PageRequest) (*Page[AuditEvent], error) {
	var page Page[AuditEvent]
	if err := c.do(ctx, http.MethodGet, path, pr.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// BaseURL возвращает базовый URL бэкенда (для dephealth-мониторинга).
func (c *Client) BaseURL() string {
	return c.baseURL
}
