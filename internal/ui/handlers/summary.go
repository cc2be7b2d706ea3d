// summary.go — сводка инвентаря по локациям.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/invaudit/portal/console-module/internal/backend"
	uimiddleware "github.com/invaudit/portal/console-module/internal/ui/middleware"
	"github.com/invaudit/portal/console-module/internal/ui/query"
	"github.com/invaudit/portal/console-module/internal/ui/views"
)

// SummaryHandler — обработчик страницы сводки.
type SummaryHandler struct {
	client *backend.Client
	views  *views.Renderer
	uiAuth *uimiddleware.UIAuth
	logger *slog.Logger
}

// NewSummaryHandler создаёт новый SummaryHandler.
func NewSummaryHandler(
	client *backend.Client,
	renderer *views.Renderer,
	uiAuth *uimiddleware.UIAuth,
	logger *slog.Logger,
) *SummaryHandler {
	return &SummaryHandler{
		client: client,
		views:  renderer,
		uiAuth: uiAuth,
		logger: logger.With(slog.String("component", "ui_summary")),
	}
}

// HandleSummary — GET /summary.
// Итоги считаются локальной редукцией по строкам сводки; отдельных
// запросов за агрегатами нет. Строка ведёт на список инвентаря с
// фильтром по своей локации (односторонний переход).
func (h *SummaryHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	session := uimiddleware.SessionFromContext(r.Context())
	data := views.SummaryData{
		Nav: navFromSession(session, "summary"),
	}

	summaries, err := h.client.LocationSummaries(r.Context())
	if err != nil {
		if h.uiAuth.HandleBackendError(w, r, err) {
			return
		}
		data.Error = errorMessage(err)
		h.views.Page(w, "summary.tmpl", data)
		return
	}

	for _, s := range summaries {
		drill := query.New(query.Defaults{SortField: "updatedAt", SortDir: "DESC"})
		drill.SetFilter(query.ModeLocation, s.Location)

		data.Rows = append(data.Rows, views.SummaryRow{
			Location: s.Location,
			Count:    s.Count,
			TotalQty: s.TotalQty,
			DrillURL: drill.URL("/"),
		})
		data.ItemCount += s.Count
		data.TotalQty += s.TotalQty
	}
	data.LocationCount = len(data.Rows)

	h.views.Page(w, "summary.tmpl", data)
}
