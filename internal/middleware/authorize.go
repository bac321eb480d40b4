package middleware

import "temanagement/api/internal/models"

type accessKind int

const (
	accessPublic accessKind = iota
	accessAuthenticated
	accessRoles
)

// Access is the per-route authorization rule consulted by Guard.Require.
type Access struct {
	kind  accessKind
	roles map[models.UserRole]struct{}
}

func Public() Access {
	return Access{kind: accessPublic}
}

func Authenticated() Access {
	return Access{kind: accessAuthenticated}
}

// Roles admits only the listed roles. An empty list admits nobody.
func Roles(roles ...models.UserRole) Access {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}
	return Access{kind: accessRoles, roles: roleSet}
}

func (a Access) IsPublic() bool {
	return a.kind == accessPublic
}

func (a Access) Allows(role models.UserRole) bool {
	switch a.kind {
	case accessPublic, accessAuthenticated:
		return true
	default:
		_, ok := a.roles[role]
		return ok
	}
}

// RouteTable maps "METHOD full-path" to the access rule of that route.
// Routes missing from the table require an authenticated caller.
type RouteTable struct {
	rules map[string]Access
}

func NewRouteTable() *RouteTable {
	return &RouteTable{rules: make(map[string]Access)}
}

// Set records access for the route. fullPath is the gin pattern including
// the group prefix, as reported by gin.Context.FullPath.
func (t *RouteTable) Set(method, fullPath string, access Access) {
	t.rules[routeKey(method, fullPath)] = access
}

func (t *RouteTable) Lookup(method, fullPath string) Access {
	if access, ok := t.rules[routeKey(method, fullPath)]; ok {
		return access
	}
	return Authenticated()
}

func routeKey(method, fullPath string) string {
	return method + " " + fullPath
}
