package model

import "fmt"

// Role is supplied by the upstream auth gateway on every request. The API
// trusts it and never re-verifies credentials.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleEmployer  Role = "employer"
	RoleCandidate Role = "candidate"
)

// ParseRole validates a role string coming off the wire.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleEmployer, RoleCandidate:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Identity is the authenticated caller as asserted by the auth gateway.
type Identity struct {
	UserID uint
	Role   Role
}

func (i Identity) IsEmployer() bool  { return i.Role == RoleEmployer }
func (i Identity) IsCandidate() bool { return i.Role == RoleCandidate }
func (i Identity) IsAdmin() bool     { return i.Role == RoleAdmin }
