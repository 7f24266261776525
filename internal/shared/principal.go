package shared

import "strings"

// Principal is the authenticated actor for a request.
type Principal struct {
	UserID      int64
	Email       string
	Permissions []string
}

// Can reports whether the principal holds the permission.
func (p Principal) Can(perm string) bool {
	perm = strings.ToLower(strings.TrimSpace(perm))
	for _, granted := range p.Permissions {
		if strings.ToLower(granted) == perm {
			return true
		}
	}
	return false
}

// Authenticated reports whether the principal belongs to a signed-in user.
func (p Principal) Authenticated() bool {
	return p.UserID > 0
}
