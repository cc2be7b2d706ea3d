// Пакет views — серверный рендеринг страниц консоли.
// Шаблоны html/template встроены в бинарник через go:embed; обработчики
// собирают готовые view-модели, шаблоны остаются без логики.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"
)

//go:embed templates/*.tmpl templates/partials/*.tmpl
var files embed.FS

// Страничные шаблоны. Каждый определяет блок "content" и рендерится
// внутри layout.tmpl.
var pageFiles = []string{
	"login.tmpl",
	"register.tmpl",
	"forgot_password.tmpl",
	"reset_password.tmpl",
	"inventory_list.tmpl",
	"item_form.tmpl",
	"audit_list.tmpl",
	"summary.tmpl",
}

var funcMap = template.FuncMap{
	// formatTime приводит метку времени бэкенда (RFC 3339) к виду для
	// таблиц. Неразбираемое значение показывается как есть.
	"formatTime": func(s string) string {
		if s == "" {
			return "—"
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return s
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"add": func(a, b int) int { return a + b },
}

// Renderer — разобранные шаблоны страниц и партиалов.
type Renderer struct {
	pages    map[string]*template.Template
	partials *template.Template
	logger   *slog.Logger
}

// New разбирает встроенные шаблоны. Ошибка разбора фатальна для старта.
func New(logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, f := range pageFiles {
		t, err := template.New("layout.tmpl").Funcs(funcMap).ParseFS(files,
			"templates/layout.tmpl",
			"templates/partials/*.tmpl",
			"templates/"+f,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора шаблона %s: %w", f, err)
		}
		pages[f] = t
	}

	partials, err := template.New("partials").Funcs(funcMap).ParseFS(files,
		"templates/partials/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора партиалов: %w", err)
	}

	return &Renderer{pages: pages, partials: partials, logger: logger.With(slog.String("component", "views"))}, nil
}

// Page рендерит страницу name (имя файла шаблона) внутри layout.
func (r *Renderer) Page(w http.ResponseWriter, name string, data any) {
	t, ok := r.pages[name]
	if !ok {
		r.logger.Error("Неизвестный шаблон страницы", slog.String("name", name))
		http.Error(w, "Ошибка рендеринга страницы", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout.tmpl", data); err != nil {
		r.logger.Error("Ошибка рендеринга страницы",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}
}

// Partial рендерит отдельный партиал (обновление таблицы без layout).
func (r *Renderer) Partial(w io.Writer, name string, data any) error {
	return r.partials.ExecuteTemplate(w, name, data)
}
