package auth

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RolePartner Role = "partner"
	RoleSupport Role = "support"
)

var ErrUnknownRole = errors.New("unknown role")

var roles = []Role{RoleUser, RoleAdmin, RolePartner, RoleSupport}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// IsStaff reports whether the role works the support desk.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSupport
}

var (
	memberPrefixes = []string{"/me", "/gyms", "/bookings", "/subscriptions", "/reviews", "/support"}

	// Policy lists the route prefixes each role may reach. Routes outside every
	// prefix are denied for all roles.
	Policy = map[Role][]string{
		RoleUser:    memberPrefixes,
		RolePartner: append(append([]string{}, memberPrefixes...), "/partner"),
		RoleSupport: {"/me", "/gyms", "/support", "/staff"},
		RoleAdmin:   append(append([]string{}, memberPrefixes...), "/partner", "/staff", "/admin"),
	}
)

// Allowed evaluates Policy for a route path. Prefixes match whole path
// segments, so "/me" allows "/me/stats" but not "/media".
func Allowed(role Role, path string) bool {
	for _, prefix := range Policy[role] {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
