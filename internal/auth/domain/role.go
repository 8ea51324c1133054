package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Role is a closed enumeration of account roles.
type Role string

const (
	RoleParent Role = "PARENT"
	RoleAdmin  Role = "ADMIN"
	RoleMaster Role = "MASTER"
)

// ParseRole validates a role name against the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleParent:
		return RoleParent, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMaster:
		return RoleMaster, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// RoleSet is an unordered, duplicate-free set of roles.
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

func (s RoleSet) Add(r Role) {
	s[r] = struct{}{}
}

// MFARequired is the role-derived enforcement predicate: privileged roles
// must have MFA enabled before a full login succeeds. Recomputed on demand,
// never stored on the account.
func (s RoleSet) MFARequired() bool {
	return s.Has(RoleAdmin) || s.Has(RoleMaster)
}

// Names returns the sorted string forms, the storage and claims encoding.
func (s RoleSet) Names() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

// ParseRoleSet decodes a space-delimited role list, dropping anything
// outside the closed set.
func ParseRoleSet(encoded string) RoleSet {
	set := make(RoleSet)
	for _, field := range strings.Fields(encoded) {
		if r, err := ParseRole(field); err == nil {
			set.Add(r)
		}
	}
	return set
}

// EncodeRoleSet renders the set as its space-delimited storage form.
func EncodeRoleSet(s RoleSet) string {
	return strings.Join(s.Names(), " ")
}
