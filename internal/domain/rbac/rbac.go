// Пакет rbac — определение роли пользователя Reporting Module по группам IdP.
// Роль editor даёт доступ к отчётам, admin дополнительно управляет маппингами.
package rbac

// Роли в порядке возрастания привилегий.
const (
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// roleWeight — вес роли для сравнения.
var roleWeight = map[string]int{
	RoleEditor: 1,
	RoleAdmin:  2,
}

// HighestRole возвращает максимальную роль из набора.
// Неизвестные роли игнорируются. Если набор пуст — возвращает пустую строку.
func HighestRole(roles []string) string {
	highest := ""
	for _, r := range roles {
		if roleWeight[r] > roleWeight[highest] {
			highest = r
		}
	}
	return highest
}

// MapGroupsToRole определяет роль пользователя по его группам IdP.
// Если ни одна группа не совпала — возвращает пустую строку.
func MapGroupsToRole(groups, adminGroups, editorGroups []string) string {
	adminSet := toSet(adminGroups)
	editorSet := toSet(editorGroups)

	var roles []string
	for _, g := range groups {
		if adminSet[g] {
			roles = append(roles, RoleAdmin)
		}
		if editorSet[g] {
			roles = append(roles, RoleEditor)
		}
	}

	return HighestRole(roles)
}

// AtLeast проверяет, что роль не ниже требуемой.
func AtLeast(role, required string) bool {
	w, ok := roleWeight[role]
	return ok && w >= roleWeight[required]
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
