// Пакет query — состояние списочных представлений консоли.
// Страница, сортировка и фильтр живут в query string URL; пакет
// отвечает за переходы между состояниями и их кодирование.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
)

// Mode — режим фильтрации списка. Один режим за раз: конкурирующие
// фильтры структурно невозможны.
type Mode string

const (
	// ModeAll — без фильтра.
	ModeAll Mode = ""
	// ModeSKU — поиск по подстроке SKU (инвентарь).
	ModeSKU Mode = "sku"
	// ModeName — поиск по подстроке названия (инвентарь).
	ModeName Mode = "name"
	// ModeLocation — фильтр по локации (инвентарь).
	ModeLocation Mode = "location"
	// ModeEntityType — фильтр по типу сущности (журнал аудита).
	ModeEntityType Mode = "entityType"
	// ModeEventType — фильтр по типу события (журнал аудита).
	ModeEventType Mode = "eventType"
	// ModeUser — фильтр по пользователю (журнал аудита).
	ModeUser Mode = "user"
)

// Допустимые размеры страницы.
var PageSizes = []int{10, 25, 50, 100}

// DefaultPageSize — размер страницы по умолчанию.
const DefaultPageSize = 50

// ValidPageSize сообщает, входит ли size в допустимый набор.
func ValidPageSize(size int) bool {
	for _, s := range PageSizes {
		if s == size {
			return true
		}
	}
	return false
}

// Defaults — сортировка по умолчанию для конкретного представления.
type Defaults struct {
	SortField string
	SortDir   string // ASC или DESC
}

// ListQuery — полное состояние списочного представления.
// Значимый тип: переходы мутируют копию, прежнее состояние
// остаётся в URL, откуда пришёл запрос.
type ListQuery struct {
	Page      int
	PageSize  int
	SortField string
	SortDir   string
	Mode      Mode
	Value     string
}

// New возвращает начальное состояние представления.
func New(d Defaults) ListQuery {
	return ListQuery{
		PageSize:  DefaultPageSize,
		SortField: d.SortField,
		SortDir:   d.SortDir,
	}
}

// SetSort применяет клик по заголовку колонки: повторный клик по той же
// колонке переворачивает направление, новая колонка начинает с ASC.
// Любая смена сортировки возвращает на первую страницу.
func (q *ListQuery) SetSort(field string) {
	if q.SortField == field {
		if q.SortDir == "ASC" {
			q.SortDir = "DESC"
		} else {
			q.SortDir = "ASC"
		}
	} else {
		q.SortField = field
		q.SortDir = "ASC"
	}
	q.Page = 0
}

// SetFilter устанавливает фильтр, вытесняя предыдущий, и возвращает
// на первую страницу. Пустое значение эквивалентно ClearFilters.
func (q *ListQuery) SetFilter(mode Mode, value string) {
	if value == "" {
		q.ClearFilters()
		return
	}
	q.Mode = mode
	q.Value = value
	q.Page = 0
}

// ClearFilters сбрасывает фильтр и возвращает на первую страницу.
// Сортировка и размер страницы сохраняются.
func (q *ListQuery) ClearFilters() {
	q.Mode = ModeAll
	q.Value = ""
	q.Page = 0
}

// SetPage переходит на страницу page. Границы не проверяются:
// номер страницы валидирует бэкенд.
func (q *ListQuery) SetPage(page int) {
	if page < 0 {
		page = 0
	}
	q.Page = page
}

// SetPageSize меняет размер страницы и возвращает на первую страницу.
// Недопустимые размеры игнорируются.
func (q *ListQuery) SetPageSize(size int) {
	if !ValidPageSize(size) || size == q.PageSize {
		return
	}
	q.PageSize = size
	q.Page = 0
}

// ApplyAuditFilters выбирает эффективный фильтр журнала аудита из
// значений формы. Приоритет: тип сущности, затем тип события, затем
// пользователь; заполнено несколько — побеждает старший.
func (q *ListQuery) ApplyAuditFilters(entityType, eventType, userID string) {
	switch {
	case entityType != "":
		q.SetFilter(ModeEntityType, entityType)
	case eventType != "":
		q.SetFilter(ModeEventType, eventType)
	case userID != "":
		q.SetFilter(ModeUser, userID)
	default:
		q.ClearFilters()
	}
}

// ForceOwner принудительно ограничивает выборку событиями владельца
// сессии. Применяется для ролей без права видеть чужие события и
// побеждает любой фильтр из формы.
func (q *ListQuery) ForceOwner(username string) {
	q.Mode = ModeUser
	q.Value = username
}

// Parse восстанавливает состояние из query string. Повреждённые или
// недопустимые значения заменяются значениями по умолчанию.
func Parse(v url.Values, d Defaults) ListQuery {
	q := New(d)

	if page, err := strconv.Atoi(v.Get("page")); err == nil && page > 0 {
		q.Page = page
	}
	if size, err := strconv.Atoi(v.Get("size")); err == nil && ValidPageSize(size) {
		q.PageSize = size
	}
	if field := v.Get("sort"); field != "" {
		q.SortField = field
	}
	switch strings.ToUpper(v.Get("dir")) {
	case "ASC":
		q.SortDir = "ASC"
	case "DESC":
		q.SortDir = "DESC"
	}
	if mode := Mode(v.Get("mode")); mode != ModeAll {
		if value := v.Get("value"); value != "" {
			q.Mode = mode
			q.Value = value
		}
	}

	return q
}

// Values кодирует состояние обратно в query string.
// Выход Parse(q.Values(), d) эквивалентен q.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.PageSize))
	v.Set("sort", q.SortField)
	v.Set("dir", q.SortDir)
	if q.Mode != ModeAll {
		v.Set("mode", string(q.Mode))
		v.Set("value", q.Value)
	}
	return v
}

// URL кодирует состояние как путь path с query string.
func (q ListQuery) URL(path string) string {
	return path + "?" + q.Values().Encode()
}

// Заголовок, которым помечаются ответы частичного обновления таблиц.
const SeqHeader = "X-Query-Seq"

// Dispatcher выдаёт монотонно растущие штампы запросов на обновление
// таблицы. Ответ со штампом, который перестал быть новейшим, клиент
// отбрасывает: перекрытие in-flight запросов не даёт устаревшим
// данным затереть свежие.
type Dispatcher struct {
	seq atomic.Uint64
}

// Next выдаёт следующий штамп.
func (d *Dispatcher) Next() uint64 {
	return d.seq.Add(1)
}

// Latest сообщает, остаётся ли штамп seq новейшим выданным.
func (d *Dispatcher) Latest(seq uint64) bool {
	return d.seq.Load() == seq
}
