package views

import "github.com/invaudit/portal/console-module/internal/backend"

// Nav — общие данные layout: пользователь и активный раздел меню.
type Nav struct {
	LoggedIn bool
	Username string
	// Role — старшая роль пользователя для отображения в шапке.
	Role    string
	CanEdit bool
	// Active — активный раздел: inventory, audit, summary.
	Active string
}

// Column — сортируемый заголовок таблицы.
type Column struct {
	Label  string
	URL    string
	Active bool
	// Dir — направление сортировки активной колонки (ASC/DESC).
	Dir string
}

// SizeOption — вариант размера страницы в селекторе.
type SizeOption struct {
	Size     int
	URL      string
	Selected bool
}

// Pager — навигация по страницам выдачи.
type Pager struct {
	Page          int // нумерация с нуля, отображается как Page+1
	TotalPages    int
	TotalElements int
	HasPrev       bool
	HasNext       bool
	PrevURL       string
	NextURL       string
	SizeOptions   []SizeOption
}

// InventoryRow — строка таблицы инвентаря со ссылками на действия.
type InventoryRow struct {
	backend.InventoryItem
	EditURL   string
	DeleteURL string
}

// InventoryTableData — данные партиала inventory_table.
type InventoryTableData struct {
	Rows    []InventoryRow
	Columns []Column
	Pager   Pager
	CanEdit bool
	// Seq — штамп запроса; дублируется в заголовке X-Query-Seq.
	Seq uint64
	// ListURL — текущий URL списка, состояние возвращается сюда
	// после мутаций.
	ListURL string
}

// InventoryListData — страница списка инвентаря.
type InventoryListData struct {
	Nav
	Error string
	Flash string
	// Поисковые поля: заполнено максимум одно.
	SearchSKU  string
	SearchName string
	// Location — выбранная локация в выпадающем списке.
	Location  string
	Locations []string
	// Скрытые поля формы фильтров: сортировка и размер страницы
	// переживают смену фильтра.
	Sort  string
	Dir   string
	Size  int
	Table InventoryTableData
}

// ItemFormData — форма создания/редактирования позиции.
type ItemFormData struct {
	Nav
	Title  string
	Action string
	// Поля формы как введены пользователем.
	SKU      string
	Name     string
	Qty      string
	Location string
	// Editing — true при редактировании: SKU неизменяем.
	Editing bool
	// Errors — все нарушения валидации разом.
	Errors []string
	// Error — прикладная ошибка бэкенда.
	Error     string
	CancelURL string
}

// AuditTableData — данные партиала audit_table.
type AuditTableData struct {
	Events  []backend.AuditEvent
	Columns []Column
	Pager   Pager
	Seq     uint64
}

// AuditListData — страница журнала аудита.
type AuditListData struct {
	Nav
	Error      string
	EntityType string
	EventType  string
	UserID     string
	// UserLocked — поле пользователя заблокировано: роль видит
	// только собственные события.
	UserLocked bool
	Sort       string
	Dir        string
	Size       int
	Table      AuditTableData
}

// SummaryRow — строка сводки по локации.
type SummaryRow struct {
	Location string
	Count    int64
	TotalQty int64
	// DrillURL — переход к списку инвентаря с фильтром по локации.
	DrillURL string
}

// SummaryData — страница сводки по локациям.
type SummaryData struct {
	Nav
	Error string
	Rows  []SummaryRow
	// Итоги локальной редукции по строкам сводки.
	LocationCount int
	ItemCount     int64
	TotalQty      int64
}

// LoginData — страница входа.
type LoginData struct {
	Nav
	Error    string
	Flash    string
	Username string
}

// RegisterData — страница регистрации.
type RegisterData struct {
	Nav
	Error    string
	Errors   []string
	Username string
	Email    string
	Role     string
	Roles    []string
}

// ForgotPasswordData — страница запроса сброса пароля.
type ForgotPasswordData struct {
	Nav
	Error string
	Flash string
	Email string
}

// ResetPasswordData — страница установки нового пароля.
type ResetPasswordData struct {
	Nav
	Error string
	Flash string
	Token string
}
