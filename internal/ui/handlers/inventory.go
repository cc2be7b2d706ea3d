// inventory.go — список инвентаря, форма позиции, удаление.
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/invaudit/portal/console-module/internal/backend"
	"github.com/invaudit/portal/console-module/internal/domain/rbac"
	uimiddleware "github.com/invaudit/portal/console-module/internal/ui/middleware"
	"github.com/invaudit/portal/console-module/internal/ui/query"
	"github.com/invaudit/portal/console-module/internal/ui/views"
)

// Сортировка списка инвентаря по умолчанию: последние изменения сверху.
var inventoryDefaults = query.Defaults{SortField: "updatedAt", SortDir: "DESC"}

var inventoryColumns = []colDef{
	{Label: "SKU", Field: "sku"},
	{Label: "Name", Field: "name"},
	{Label: "Quantity", Field: "qty"},
	{Label: "Location", Field: "location"},
	{Label: "Updated", Field: "updatedAt"},
}

// InventoryHandler — обработчики экранов инвентаря.
type InventoryHandler struct {
	client     *backend.Client
	views      *views.Renderer
	uiAuth     *uimiddleware.UIAuth
	dispatcher *query.Dispatcher
	logger     *slog.Logger
}

// NewInventoryHandler создаёт новый InventoryHandler.
func NewInventoryHandler(
	client *backend.Client,
	renderer *views.Renderer,
	uiAuth *uimiddleware.UIAuth,
	dispatcher *query.Dispatcher,
	logger *slog.Logger,
) *InventoryHandler {
	return &InventoryHandler{
		client:     client,
		views:      renderer,
		uiAuth:     uiAuth,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "ui_inventory")),
	}
}

// parseInventoryQuery восстанавливает состояние списка из URL.
// Поля формы фильтров (sku/name/location) вытесняют mode/value из URL:
// заполнено может быть только одно, пустая форма снимает фильтр.
func parseInventoryQuery(r *http.Request) query.ListQuery {
	vals := r.URL.Query()
	q := query.Parse(vals, inventoryDefaults)
	switch {
	case strings.TrimSpace(vals.Get("sku")) != "":
		q.SetFilter(query.ModeSKU, strings.TrimSpace(vals.Get("sku")))
	case strings.TrimSpace(vals.Get("name")) != "":
		q.SetFilter(query.ModeName, strings.TrimSpace(vals.Get("name")))
	case strings.TrimSpace(vals.Get("location")) != "":
		q.SetFilter(query.ModeLocation, strings.TrimSpace(vals.Get("location")))
	case vals.Has("sku") || vals.Has("name") || vals.Has("location"):
		q.ClearFilters()
	}
	return q
}

// fetchTable выполняет запрос активного режима и собирает данные таблицы.
// Штамп seq уже выдан вызывающим.
func (h *InventoryHandler) fetchTable(r *http.Request, q query.ListQuery, seq uint64) (views.InventoryTableData, error) {
	ctx := r.Context()
	pr := backend.PageRequest{
		Page:    q.Page,
		Size:    q.PageSize,
		SortBy:  q.SortField,
		SortDir: q.SortDir,
	}

	var (
		page *backend.Page[backend.InventoryItem]
		err  error
	)
	switch q.Mode {
	case query.ModeSKU:
		// Поисковые endpoints не принимают сортировку
		page, err = h.client.SearchItemsBySKU(ctx, q.Value, q.Page, q.PageSize)
	case query.ModeName:
		page, err = h.client.SearchItemsByName(ctx, q.Value, q.Page, q.PageSize)
	case query.ModeLocation:
		page, err = h.client.ListItemsByLocation(ctx, q.Value, pr)
	default:
		page, err = h.client.ListItems(ctx, pr)
	}

	session := uimiddleware.SessionFromContext(ctx)
	canEdit := session != nil && rbac.CanEdit(session.Roles)

	data := views.InventoryTableData{
		Columns: buildColumns(q, "/", inventoryColumns),
		CanEdit: canEdit,
		Seq:     seq,
		ListURL: q.URL("/"),
	}
	if err != nil {
		return data, err
	}

	for _, item := range page.Content {
		id := strconv.FormatInt(item.ID, 10)
		data.Rows = append(data.Rows, views.InventoryRow{
			InventoryItem: item,
			EditURL:       "/inventory/" + id + "/edit",
			DeleteURL:     "/inventory/" + id + "/delete",
		})
	}
	data.Pager = buildPager(q, "/", page.TotalPages, page.TotalElements)
	return data, nil
}

// HandleList — GET / (страница списка инвентаря).
func (h *InventoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	session := uimiddleware.SessionFromContext(r.Context())
	q := parseInventoryQuery(r)

	data := views.InventoryListData{
		Nav:   navFromSession(session, "inventory"),
		Flash: r.URL.Query().Get("flash"),
		Sort:  q.SortField,
		Dir:   q.SortDir,
		Size:  q.PageSize,
	}
	switch q.Mode {
	case query.ModeSKU:
		data.SearchSKU = q.Value
	case query.ModeName:
		data.SearchName = q.Value
	case query.ModeLocation:
		data.Location = q.Value
	}

	// Локации для выпадающего списка — best-effort: при ошибке список
	// пуст, страница остаётся работоспособной
	if summaries, err := h.client.LocationSummaries(r.Context()); err != nil {
		if h.uiAuth.HandleBackendError(w, r, err) {
			return
		}
		h.logger.Warn("Не удалось загрузить список локаций", slog.String("error", err.Error()))
	} else {
		for _, s := range summaries {
			data.Locations = append(data.Locations, s.Location)
		}
	}

	table, err := h.fetchTable(r, q, h.dispatcher.Next())
	if err != nil {
		if h.uiAuth.HandleBackendError(w, r, err) {
			return
		}
		data.Error = errorMessage(err)
	}
	data.Table = table

	h.views.Page(w, "inventory_list.tmpl", data)
}

// HandlePartial — GET /partials/inventory-table.
// Ответ несёт штамп X-Query-Seq; клиент отбрасывает устаревшие.
func (h *InventoryHandler) HandlePartial(w http.ResponseWriter, r *http.Request) {
	q := parseInventoryQuery(r)
	seq := h.dispatcher.Next()

	table, err := h.fetchTable(r, q, seq)
	if err != nil {
		if h.uiAuth.HandleBackendError(w, r, err) {
			return
		}
		h.logger.Warn("Ошибка обновления таблицы инвентаря", slog.String("error", err.Error()))
		http.Error(w, errorMessage(err), http.StatusBadGateway)
		return
	}

	w.Header().Set(query.SeqHeader, strconv.FormatUint(seq, 10))

	// Пока шёл запрос к бэкенду, выдан более новый штамп — этот ответ
	// всё равно будет отброшен клиентом, рендерить его незачем.
	if !h.dispatcher.Latest(seq) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.views.Partial(w, "inventory_table", table); err != nil {
		h.logger.Error("Ошибка рендеринга партиала", slog.String("error", err.Error()))
	}
}

// itemForm — поля формы позиции как введены пользователем.
type itemForm struct {
	SKU      string
	Name     string
	Qty      string
	Location string
}

// validate возвращает все нарушения разом, в порядке полей формы.
func (f itemForm) validate() []string {
	var errs []string
	if f.SKU == "" {
		errs = append(errs, "SKU is required")
	}
	if f.Name == "" {
		errs = append(errs, "Name is required")
	}
	if n, err := strconv.Atoi(f.Qty); err != nil || n < 0 {
		errs = append(errs, "Quantity must be 0 or greater")
	}
	if f.Location == "" {
		errs = append(errs, "Location is required")
	}
	return errs
}

// requireEdit — серверная сторона ролевого гейта формы. Удобство для UI:
// авторитетная проверка остаётся за бэкендом.
func (h *InventoryHandler) requireEdit(w http.ResponseWriter, r *http.Request) bool {
	session := uimiddleware.SessionFromContext(r.Context())
	if session == nil || !rbac.CanEdit(session.Roles) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return false
	}
	return true
}

// HandleNewForm — GET /inventory/new.
func (h *InventoryHandler) HandleNewForm(w http.ResponseWriter, r *http.Request) {
	if !h.requireEdit(w, r) {
		return
	}
	session := uimiddleware.SessionFromContext(r.Context())
	h.views.Page(w, "item_form.tmpl", views.ItemFormData{
		Nav:       navFromSession(session, "inventory"),
		Title:     "New item",
		Action:    "/inventory/new",
		Qty:       "0",
		CancelURL: "/",
	})
}

// HandleCreate — POST /inventory/new.
// Невалидная форма рендерится заново с введёнными значениями,
// бэкенд не вызывается. Успех — redirect на список (повторная выборка).
func (h *InventoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !h.requireEdit(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	session := uimiddleware.SessionFromContext(r.Context())

	form := itemForm{
		SKU:      trimmed(r.PostForm, "sku"),
		Name:     trimmed(r.PostForm, "name"),
		Qty:      trimmed(r.PostForm, "qty"),
		Location: trimmed(r.PostForm, "location"),
	}
	data := views.ItemFormData{
		Nav:       navFromSession(session, "inventory"),
		Title:     "New item",
		Action:    "/inventory/new",
		SKU:       form.SKU,
		Name:      form.Name,
		Qty:       form.Qty,
		Location:  form.Location,
		CancelURL: "/",
	}

	if data.Errors = form.validate(); len(data.Errors) > 0 {
		h.views.Page(w, "item_form.tmpl", data)
		return
	}

	qty, _ := strconv.Atoi(form.Qty)
	_, err := h.client.CreateItem(r.Context(), backend.InventoryItem{
		SKU:      form.SKU,
		Name:     form.Name,
		Qty:      qty,
		Location: form.Location,
	})
	if err != nil {
		if h.uiAuth.HandleBackendError(w, r, err) {
			return
		}
		data.Error = errorMessage(err)
		h.views.Page(w, "item_form.tmpl", data)
		return
	}

	http.Redirect(w, r, withFlash("/", "Item created"), http.StatusFound)
}

// itemID извлекает {id} из маршрута.
func itemID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// HandleEditForm — GET /inventory/{id}/edit.
func (h *InventoryHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	if !h.requireEdit(w, r) {
		return
	}
	id, ok := itemID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	session := uimiddleware.SessionFromContext(r.Context())

	item, err := h.client.GetItem(r.Context(), id)
	if err != nil {
		if h.uiAuth.HandleBackendError(w, r, err) {
			return
		}
		http.Redirect(w, r, withFlash("/", errorMessage(err)), http.StatusFound)
		return
	}

	h.views.Page(w, "item_form.tmpl", views.ItemFormData{
		Nav:       navFromSession(session, "inventory"),
		Title:     "Edit item " + item.SKU,
		Action:    "/inventory/" + strconv.FormatInt(id, 10) + "/edit",
		SKU:       item.SKU,
		Name:      item.Name,
		Qty:       strconv.Itoa(item.Qty),
		Location:  item.Location,
		Editing:   true,
		CancelURL: "/",
	})
}

// HandleUpdate — POST /inventory/{id}/edit.
// SKU неизменяем: значение берётся из хранимой позиции, не из формы.
func (h *InventoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if !h.requireEdit(w, r) {
		return
	}
	id, ok := itemID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	session := uimiddleware.SessionFromContext(r.Context())

	stored, err := h.client.GetItem(r.Context(), id)
	if err != nil {
		if h.uiAuth.HandleBackendError(w, r, err) {
			return
		}
		http.Redirect(w, r, withFlash("/", errorMessage(err)), http.StatusFound)
		return
	}

	form := itemForm{
		SKU:      stored.SKU,
		Name:     trimmed(r.PostForm, "name"),
		Qty:      trimmed(r.PostForm, "qty"),
		Location: trimmed(r.PostForm, "location"),
	}
	data := views.ItemFormData{
		Nav:       navFromSession(session, "inventory"),
		Title:     "Edit item " + stored.SKU,
		Action:    "/inventory/" + strconv.FormatInt(id, 10) + "/edit",
		SKU:       stored.SKU,
		Name:      form.Name,
		Qty:       form.Qty,
		Location:  form.Location,
		Editing:   true,
		CancelURL: "/",
	}

	if data.Errors = form.validate(); len(data.Errors) > 0 {
		h.views.Page(w, "item_form.tmpl", data)
		return
	}

	qty, _ := strconv.Atoi(form.Qty)
	_, err = h.client.UpdateItem(r.Context(), id, backend.InventoryItem{
		SKU:      stored.SKU,
		Name:     form.Name,
		Qty:      qty,
		Location: form.Location,
	})
	if err != nil {
		if h.uiAuth.HandleBackendError(w, r, err) {
			return
		}
		data.Error = errorMessage(err)
		h.views.Page(w, "item_form.tmpl", data)
		return
	}

	http.Redirect(w, r, withFlash("/", "Item updated"), http.StatusFound)
}

// HandleDelete — POST /inventory/{id}/delete.
// Возврат на текущий URL списка: состояние фильтров и страницы
// сохраняется, данные перечитываются заново.
func (h *InventoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if !h.requireEdit(w, r) {
		return
	}
	id, ok := itemID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	returnURL := r.PostForm.Get("return")
	if returnURL == "" || !strings.HasPrefix(returnURL, "/") || strings.HasPrefix(returnURL, "//") {
		returnURL = "/"
	}

	if err := h.client.DeleteItem(r.Context(), id); err != nil {
		if h.uiAuth.HandleBackendError(w, r, err) {
			return
		}
		http.Redirect(w, r, withFlash(returnURL, errorMessage(err)), http.StatusFound)
		return
	}

	http.Redirect(w, r, withFlash(returnURL, "Item deleted"), http.StatusFound)
}
