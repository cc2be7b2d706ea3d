// Пакет handlers — HTTP-обработчики страниц консоли.
package handlers

import (
	"errors"
	"net/url"
	"strings"

	"github.com/invaudit/portal/console-module/internal/backend"
	"github.com/invaudit/portal/console-module/internal/domain/rbac"
	"github.com/invaudit/portal/console-module/internal/ui/auth"
	"github.com/invaudit/portal/console-module/internal/ui/query"
	"github.com/invaudit/portal/console-module/internal/ui/views"
)

// navFromSession собирает данные шапки из сессии.
func navFromSession(session *auth.SessionData, active string) views.Nav {
	if session == nil {
		return views.Nav{Active: active}
	}
	return views.Nav{
		LoggedIn: true,
		Username: session.Username,
		Role:     rbac.HighestRole(session.Roles),
		CanEdit:  rbac.CanEdit(session.Roles),
		Active:   active,
	}
}

// errorMessage приводит ошибку бэкенда к сообщению для пользователя.
// Прикладные ошибки несут сообщение бэкенда как есть.
func errorMessage(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Unexpected error"
}

// colDef — описание сортируемой колонки таблицы.
type colDef struct {
	Label string
	Field string
}

// buildColumns строит заголовки таблицы: каждый несёт URL состояния
// после клика по нему (переключение сортировки, сброс страницы).
func buildColumns(q query.ListQuery, path string, defs []colDef) []views.Column {
	cols := make([]views.Column, 0, len(defs))
	for _, d := range defs {
		next := q
		next.SetSort(d.Field)
		cols = append(cols, views.Column{
			Label:  d.Label,
			URL:    next.URL(path),
			Active: q.SortField == d.Field,
			Dir:    q.SortDir,
		})
	}
	return cols
}

// buildPager строит навигацию по страницам из ответа бэкенда.
func buildPager(q query.ListQuery, path string, totalPages, totalElements int) views.Pager {
	p := views.Pager{
		Page:          q.Page,
		TotalPages:    totalPages,
		TotalElements: totalElements,
		HasPrev:       q.Page > 0,
		HasNext:       q.Page < totalPages-1,
	}
	if p.HasPrev {
		prev := q
		prev.SetPage(q.Page - 1)
		p.PrevURL = prev.URL(path)
	}
	if p.HasNext {
		next := q
		next.SetPage(q.Page + 1)
		p.NextURL = next.URL(path)
	}
	for _, size := range query.PageSizes {
		opt := q
		opt.SetPageSize(size)
		p.SizeOptions = append(p.SizeOptions, views.SizeOption{
			Size:     size,
			URL:      opt.URL(path),
			Selected: size == q.PageSize,
		})
	}
	return p
}

// withFlash добавляет flash-сообщение к URL списка.
func withFlash(listURL, flash string) string {
	u, err := url.Parse(listURL)
	if err != nil {
		return listURL
	}
	v := u.Query()
	v.Set("flash", flash)
	u.RawQuery = v.Encode()
	return u.String()
}

// trimmed возвращает значение поля формы без краевых пробелов.
func trimmed(v url.Values, key string) string {
	return strings.TrimSpace(v.Get(key))
}
