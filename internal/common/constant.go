package common

import "strings"

// AccessTokenHeaderName is the gRPC metadata key used to carry the access
// token on inbound and outbound requests.
const AccessTokenHeaderName = "access_token"

// RefreshTokenCookieName is the HTTP cookie carrying the refresh token.
const RefreshTokenCookieName = "RefreshToken"

// Roles recognised in access-token claims. Stored employee types may use
// any letter case; claims always carry one of these constants.
const (
	RoleAdmin     = "admin"
	RoleStaff     = "staff"
	RoleBasic     = "basic"
	RoleSuperUser = "SuperUser-001"
)

var knownRoles = []string{RoleAdmin, RoleStaff, RoleBasic, RoleSuperUser}

// CanonicalRole maps role to its recognised constant, ignoring case and
// surrounding whitespace. ok is false for unknown roles.
func CanonicalRole(role string) (canonical string, ok bool) {
	role = strings.TrimSpace(role)
	for _, r := range knownRoles {
		if strings.EqualFold(role, r) {
			return r, true
		}
	}
	return "", false
}

// IsKnownRole reports whether role is one of the recognised role strings.
func IsKnownRole(role string) bool {
	_, ok := CanonicalRole(role)
	return ok
}
