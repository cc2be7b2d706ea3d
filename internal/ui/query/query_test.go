package query

import (
	"net/url"
	"sync"
	"testing"
)

// TestSetSortToggle проверяет переключение направления сортировки.
func TestSetSortToggle(t *testing.T) {
	q := New(Defaults{SortField: "updatedAt", SortDir: "DESC"})

	// Новая колонка — всегда ASC
	q.SetSort("sku")
	if q.SortField != "sku" || q.SortDir != "ASC" {
		t.Errorf("После клика по новой колонке: got %s %s, want sku ASC", q.SortField, q.SortDir)
	}

	// Повторный клик — DESC
	q.SetSort("sku")
	if q.SortDir != "DESC" {
		t.Errorf("После повторного клика: got %s, want DESC", q.SortDir)
	}

	// Третий клик — снова ASC
	q.SetSort("sku")
	if q.SortDir != "ASC" {
		t.Errorf("После третьего клика: got %s, want ASC", q.SortDir)
	}

	// Переход на другую колонку сбрасывает направление на ASC
	q.SetSort("sku")
	q.SetSort("qty")
	if q.SortField != "qty" || q.SortDir != "ASC" {
		t.Errorf("После смены колонки: got %s %s, want qty ASC", q.SortField, q.SortDir)
	}
}

// TestSortResetsPage проверяет возврат на первую страницу при смене сортировки.
func TestSortResetsPage(t *testing.T) {
	q := New(Defaults{SortField: "updatedAt", SortDir: "DESC"})
	q.SetPage(4)

	q.SetSort("name")
	if q.Page != 0 {
		t.Errorf("Смена сортировки должна сбрасывать страницу: got %d", q.Page)
	}
}

// TestFilterMutualExclusivity проверяет, что активен ровно один фильтр.
func TestFilterMutualExclusivity(t *testing.T) {
	q := New(Defaults{SortField: "updatedAt", SortDir: "DESC"})

	q.SetFilter(ModeSKU, "WID")
	if q.Mode != ModeSKU || q.Value != "WID" {
		t.Fatalf("Фильтр не установлен: %+v", q)
	}

	// Новый фильтр вытесняет предыдущий
	q.SetFilter(ModeLocation, "Warehouse A")
	if q.Mode != ModeLocation || q.Value != "Warehouse A" {
		t.Errorf("Фильтр должен быть вытеснен: %+v", q)
	}
}

// TestFilterResetsPage проверяет возврат на первую страницу при смене фильтра.
func TestFilterResetsPage(t *testing.T) {
	q := New(Defaults{SortField: "updatedAt", SortDir: "DESC"})
	q.SetPage(3)

	q.SetFilter(ModeName, "widget")
	if q.Page != 0 {
		t.Errorf("Смена фильтра должна сбрасывать страницу: got %d", q.Page)
	}

	q.SetPage(2)
	q.ClearFilters()
	if q.Page != 0 {
		t.Errorf("Сброс фильтра должен сбрасывать страницу: got %d", q.Page)
	}
	if q.Mode != ModeAll || q.Value != "" {
		t.Errorf("Фильтр не сброшен: %+v", q)
	}
}

// TestSetFilterEmptyValueClears проверяет, что пустое значение снимает фильтр.
func TestSetFilterEmptyValueClears(t *testing.T) {
	q := New(Defaults{SortField: "updatedAt", SortDir: "DESC"})
	q.SetFilter(ModeSKU, "WID")

	q.SetFilter(ModeSKU, "")
	if q.Mode != ModeAll {
		t.Errorf("Пустое значение должно снимать фильтр: %+v", q)
	}
}

// TestClearFiltersKeepsSortAndSize проверяет, что сброс фильтра не трогает
// сортировку и размер страницы.
func TestClearFiltersKeepsSortAndSize(t *testing.T) {
	q := New(Defaults{SortField: "updatedAt", SortDir: "DESC"})
	q.SetSort("sku")
	q.SetPageSize(25)
	q.SetFilter(ModeLocation, "Shelf 3")

	q.ClearFilters()
	if q.SortField != "sku" || q.SortDir != "ASC" {
		t.Errorf("Сортировка изменилась: %s %s", q.SortField, q.SortDir)
	}
	if q.PageSize != 25 {
		t.Errorf("Размер страницы изменился: %d", q.PageSize)
	}
}

// TestSetPageDoesNotTouchRest проверяет, что переход по страницам меняет
// только номер страницы.
func TestSetPageDoesNotTouchRest(t *testing.T) {
	q := New(Defaults{SortField: "timestamp", SortDir: "DESC"})
	q.SetFilter(ModeEventType, "ITEM_CREATED")
	before := q

	q.SetPage(5)
	if q.Page != 5 {
		t.Fatalf("Страница не установлена: %d", q.Page)
	}
	q.Page = before.Page
	if q != before {
		t.Errorf("Переход по страницам изменил прочее состояние: %+v != %+v", q, before)
	}

	// Отрицательная страница нормализуется в 0
	q.SetPage(-1)
	if q.Page != 0 {
		t.Errorf("Отрицательная страница: got %d, want 0", q.Page)
	}
}

// TestSetPageSize проверяет enum размеров и сброс страницы.
func TestSetPageSize(t *testing.T) {
	q := New(Defaults{SortField: "updatedAt", SortDir: "DESC"})
	if q.PageSize != DefaultPageSize {
		t.Fatalf("Размер по умолчанию: got %d, want %d", q.PageSize, DefaultPageSize)
	}

	q.SetPage(2)
	q.SetPageSize(100)
	if q.PageSize != 100 || q.Page != 0 {
		t.Errorf("После смены размера: size=%d page=%d", q.PageSize, q.Page)
	}

	// Недопустимый размер игнорируется
	q.SetPage(2)
	q.SetPageSize(33)
	if q.PageSize != 100 || q.Page != 2 {
		t.Errorf("Недопустимый размер должен игнорироваться: size=%d page=%d", q.PageSize, q.Page)
	}

	// Тот же размер — страница не сбрасывается
	q.SetPageSize(100)
	if q.Page != 2 {
		t.Errorf("Повторный выбор того же размера не должен сбрасывать страницу: %d", q.Page)
	}
}

// TestApplyAuditFiltersPrecedence проверяет приоритет фильтров журнала аудита.
func TestApplyAuditFiltersPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		entityType string
		eventType  string
		userID     string
		wantMode   Mode
		wantValue  string
	}{
		{"все пусто", "", "", "", ModeAll, ""},
		{"только пользователь", "", "", "alice", ModeUser, "alice"},
		{"тип события важнее пользователя", "", "ITEM_UPDATED", "alice", ModeEventType, "ITEM_UPDATED"},
		{"тип сущности важнее всего", "INVENTORY_ITEM", "ITEM_UPDATED", "alice", ModeEntityType, "INVENTORY_ITEM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(Defaults{SortField: "timestamp", SortDir: "DESC"})
			q.ApplyAuditFilters(tt.entityType, tt.eventType, tt.userID)
			if q.Mode != tt.wantMode || q.Value != tt.wantValue {
				t.Errorf("got %s %q, want %s %q", q.Mode, q.Value, tt.wantMode, tt.wantValue)
			}
		})
	}
}

// TestForceOwnerBeatsFilters проверяет, что принудительный фильтр владельца
// побеждает любой фильтр из формы.
func TestForceOwnerBeatsFilters(t *testing.T) {
	q := New(Defaults{SortField: "timestamp", SortDir: "DESC"})
	q.ApplyAuditFilters("INVENTORY_ITEM", "", "someoneelse")

	q.ForceOwner("selfuser")
	if q.Mode != ModeUser || q.Value != "selfuser" {
		t.Errorf("ForceOwner: got %s %q, want user selfuser", q.Mode, q.Value)
	}
}

// TestParseValuesRoundTrip проверяет кодирование состояния в URL и обратно.
func TestParseValuesRoundTrip(t *testing.T) {
	d := Defaults{SortField: "updatedAt", SortDir: "DESC"}

	q := New(d)
	q.SetFilter(ModeLocation, "Warehouse A")
	q.SetSort("qty")
	q.SetPageSize(25)
	q.SetPage(3)

	got := Parse(q.Values(), d)
	if got != q {
		t.Errorf("Round-trip не совпал: got %+v, want %+v", got, q)
	}
}

// TestParseInvalidValues проверяет устойчивость к мусору в URL.
func TestParseInvalidValues(t *testing.T) {
	d := Defaults{SortField: "updatedAt", SortDir: "DESC"}

	v := url.Values{}
	v.Set("page", "-5")
	v.Set("size", "7")
	v.Set("dir", "sideways")
	v.Set("mode", "location")
	// value отсутствует — фильтр игнорируется

	q := Parse(v, d)
	if q.Page != 0 {
		t.Errorf("page: got %d, want 0", q.Page)
	}
	if q.PageSize != DefaultPageSize {
		t.Errorf("size: got %d, want %d", q.PageSize, DefaultPageSize)
	}
	if q.SortDir != "DESC" {
		t.Errorf("dir: got %s, want DESC", q.SortDir)
	}
	if q.Mode != ModeAll {
		t.Errorf("mode без value: got %s, want пусто", q.Mode)
	}
}

// TestDispatcherLatest проверяет, что новейшим считается последний штамп.
func TestDispatcherLatest(t *testing.T) {
	var d Dispatcher

	s1 := d.Next()
	s2 := d.Next()

	if d.Latest(s1) {
		t.Error("Старый штамп не должен считаться новейшим")
	}
	if !d.Latest(s2) {
		t.Error("Последний штамп должен считаться новейшим")
	}
}

// TestDispatcherConcurrent проверяет монотонность штампов при гонке.
func TestDispatcherConcurrent(t *testing.T) {
	var d Dispatcher
	var wg sync.WaitGroup

	const goroutines = 16
	const perGoroutine = 100

	seen := make([][]uint64, goroutines)
	for i := range goroutines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for range perGoroutine {
				seen[i] = append(seen[i], d.Next())
			}
		}(i)
	}
	wg.Wait()

	unique := make(map[uint64]bool)
	for _, stamps := range seen {
		for j, s := range stamps {
			if unique[s] {
				t.Fatalf("Штамп %d выдан дважды", s)
			}
			unique[s] = true
			if j > 0 && stamps[j-1] >= s {
				t.Fatalf("Штампы внутри горутины не возрастают: %d затем %d", stamps[j-1], s)
			}
		}
	}
	if len(unique) != goroutines*perGoroutine {
		t.Errorf("Выдано %d уникальных штампов, ожидалось %d", len(unique), goroutines*perGoroutine)
	}
}
