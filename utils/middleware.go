package utils

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/exp/slices"
)

// Role is the coarse authorization discriminator carried in the access token.
type Role string

const (
	RoleUser  Role = "user"
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

// UserIDFromTokenMiddleware extracts the user ID from the JWT and stores it
// in the request context for downstream handlers.
func UserIDFromTokenMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	ctx.Values().Set("userID", claims.ID)
	ctx.Values().Set("userRole", claims.Role)
	ctx.Next()
}

// RequireRoles gates a route on an explicit allow-list of roles instead of
// ad hoc string comparisons at each call site.
func RequireRoles(roles ...Role) iris.Handler {
	return func(ctx iris.Context) {
		claims := jwt.Get(ctx).(*AccessToken)
		if !slices.Contains(roles, Role(claims.Role)) {
			ctx.StopWithJSON(iris.StatusForbidden, iris.Map{"error": "forbidden", "message": "insufficient role"})
			return
		}
		ctx.Values().Set("userID", claims.ID)
		ctx.Values().Set("userRole", claims.Role)
		ctx.Next()
	}
}

// AdminOnlyMiddleware is RequireRoles(RoleAdmin) under its historical name.
func AdminOnlyMiddleware(ctx iris.Context) {
	RequireRoles(RoleAdmin)(ctx)
}

// ContextUser returns the authenticated user's id and role as placed by the
// middlewares above. ok is false when the route was not authenticated.
func ContextUser(ctx iris.Context) (id uint, role Role, ok bool) {
	idValue := ctx.Values().Get("userID")
	if idValue == nil {
		return 0, "", false
	}
	id, idOK := idValue.(uint)
	if !idOK {
		return 0, "", false
	}
	if r, rOK := ctx.Values().Get("userRole").(string); rOK {
		role = Role(r)
	}
	return id, role, true
}

// IsAdmin reports whether the request carries the admin role.
func IsAdmin(ctx iris.Context) bool {
	_, role, ok := ContextUser(ctx)
	return ok && role == RoleAdmin
}
