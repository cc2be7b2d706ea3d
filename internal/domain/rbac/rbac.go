// Пакет rbac — вычисление capability текущего пользователя по его ролям.
// Единственный источник истины для ролевой логики UI: все экраны используют
// эти предикаты, а не собственные проверки. Capability — только UI-удобство;
// авторитетная проверка прав выполняется бэкендом.
package rbac

// Роли в порядке возрастания привилегий.
const (
	RoleUser    = "USER"
	RoleManager = "MANAGER"
	RoleAdmin   = "ADMIN"
)

// roleWeight — вес роли для сравнения.
var roleWeight = map[string]int{
	RoleUser:    1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// CanEdit — право создавать, редактировать и удалять позиции инвентаря:
// членство в MANAGER или ADMIN.
func CanEdit(roles []string) bool {
	return hasAny(roles, RoleManager, RoleAdmin)
}

// RestrictedToSelf — видимость только собственных данных: членство в USER
// без MANAGER/ADMIN. Для таких пользователей списки аудита принудительно
// фильтруются по их собственному username.
func RestrictedToSelf(roles []string) bool {
	return hasAny(roles, RoleUser) && !hasAny(roles, RoleManager, RoleAdmin)
}

// Roles возвращает все допустимые роли в порядке возрастания привилегий.
func Roles() []string {
	return []string{RoleUser, RoleManager, RoleAdmin}
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// HighestRole возвращает максимальную роль из набора.
// Если набор пуст или не содержит допустимых ролей — возвращает пустую строку.
func HighestRole(roles []string) string {
	highest := ""
	for _, r := range roles {
		if roleWeight[r] > roleWeight[highest] {
			highest = r
		}
	}
	return highest
}

// hasAny проверяет членство хотя бы в одной из указанных ролей.
func hasAny(roles []string, wanted ...string) bool {
	for _, r := range roles {
		for _, w := range wanted {
			if r == w {
				return true
			}
		}
	}
	return false
}
