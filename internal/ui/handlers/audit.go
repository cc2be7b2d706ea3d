// audit.go — журнал аудита с ролевым ограничением видимости.
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/invaudit/portal/console-module/internal/backend"
	"github.com/invaudit/portal/console-module/internal/domain/rbac"
	uimiddleware "github.com/invaudit/portal/console-module/internal/ui/middleware"
	"github.com/invaudit/portal/console-module/internal/ui/query"
	"github.com/invaudit/portal/console-module/internal/ui/views"
)

// Журнал по умолчанию: свежие события сверху.
var auditDefaults = query.Defaults{SortField: "timestamp", SortDir: "DESC"}

var auditColumns = []colDef{
	{Label: "Time", Field: "timestamp"},
	{Label: "Event", Field: "eventType"},
	{Label: "Entity", Field: "entityType"},
	{Label: "User", Field: "userId"},
}

// AuditHandler — обработчики журнала аудита.
type AuditHandler struct {
	client     *backend.Client
	views      *views.Renderer
	uiAuth     *uimiddleware.UIAuth
	dispatcher *query.Dispatcher
	logger     *slog.Logger
}

// NewAuditHandler создаёт новый AuditHandler.
func NewAuditHandler(
	client *backend.Client,
	renderer *views.Renderer,
	uiAuth *uimiddleware.UIAuth,
	dispatcher *query.Dispatcher,
	logger *slog.Logger,
) *AuditHandler {
	return &AuditHandler{
		client:     client,
		views:      renderer,
		uiAuth:     uiAuth,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "ui_audit")),
	}
}

// parseAuditQuery восстанавливает состояние журнала из URL.
// Поля формы побеждают mode/value из URL; роль без права видеть чужие
// события принудительно получает фильтр по собственному username,
// независимо от любых значений формы или URL.
func parseAuditQuery(r *http.Request) query.ListQuery {
	vals := r.URL.Query()
	q := query.Parse(vals, auditDefaults)

	if vals.Has("entityType") || vals.Has("eventType") || vals.Has("userId") {
		q.ApplyAuditFilters(
			trimmed(vals, "entityType"),
			trimmed(vals, "eventType"),
			trimmed(vals, "userId"),
		)
	}

	session := uimiddleware.SessionFromContext(r.Context())
	if session != nil && rbac.RestrictedToSelf(session.Roles) {
		q.ForceOwner(session.Username)
	}
	return q
}

// fetchTable выполняет запрос активного режима журнала.
func (h *AuditHandler) fetchTable(r *http.Request, q query.ListQuery, seq uint64) (views.AuditTableData, error) {
	ctx := r.Context()
	pr := backend.PageRequest{
		Page:    q.Page,
		Size:    q.PageSize,
		SortBy:  q.SortField,
		SortDir: q.SortDir,
	}

	var (
		page *backend.Page[backend.AuditEvent]
		err  error
	)
	switch q.Mode {
	case query.ModeEntityType:
		page, err = h.client.EventsByEntityType(ctx, q.Value, pr)
	case query.ModeEventType:
		page, err = h.client.EventsByEventType(ctx, q.Value, pr)
	case query.ModeUser:
		page, err = h.client.EventsByUser(ctx, q.Value, pr)
	default:
		page, err = h.client.ListEvents(ctx, pr)
	}

	data := views.AuditTableData{
		Columns: buildColumns(q, "/audit", auditColumns),
		Seq:     seq,
	}
	if err != nil {
		return data, err
	}

	data.Events = page.Content
	data.Pager = buildPager(q, "/audit", page.TotalPages, page.TotalElements)
	return data, nil
}

// HandleList — GET /audit.
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	session := uimiddleware.SessionFromContext(r.Context())
	q := parseAuditQuery(r)

	restricted := session != nil && rbac.RestrictedToSelf(session.Roles)
	data := views.AuditListData{
		Nav:        navFromSession(session, "audit"),
		UserLocked: restricted,
		Sort:       q.SortField,
		Dir:        q.SortDir,
		Size:       q.PageSize,
	}
	switch q.Mode {
	case query.ModeEntityType:
		data.EntityType = q.Value
	case query.ModeEventType:
		data.EventType = q.Value
	case query.ModeUser:
		data.UserID = q.Value
	}

	table, err := h.fetchTable(r, q, h.dispatcher.Next())
	if err != nil {
		if h.uiAuth.HandleBackendError(w, r, err) {
			return
		}
		data.Error = errorMessage(err)
	}
	data.Table = table

	h.views.Page(w, "audit_list.tmpl", data)
}

// HandlePartial — GET /partials/audit-table.
func (h *AuditHandler) HandlePartial(w http.ResponseWriter, r *http.Request) {
	q := parseAuditQuery(r)
	seq := h.dispatcher.Next()

	table, err := h.fetchTable(r, q, seq)
	if err != nil {
		if h.uiAuth.HandleBackendError(w, r, err) {
			return
		}
		h.logger.Warn("Ошибка обновления таблицы журнала", slog.String("error", err.Error()))
		http.Error(w, errorMessage(err), http.StatusBadGateway)
		return
	}

	w.Header().Set(query.SeqHeader, strconv.FormatUint(seq, 10))

	// Перекрытый более новым штампом ответ клиент отбросит — не рендерим.
	if !h.dispatcher.Latest(seq) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.views.Partial(w, "audit_table", table); err != nil {
		h.logger.Error("Ошибка рендеринга партиала", slog.String("error", err.Error()))
	}
}
