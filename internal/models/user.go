package models

import "strings"

type UserRole string

const (
	RoleStudent  UserRole = "student"
	RoleLecturer UserRole = "lecturer"
	RoleGrader   UserRole = "grader"
)

// ParseUserRole maps identity-provider role names onto the roles this service knows.
func ParseUserRole(name string) (UserRole, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "student":
		return RoleStudent, true
	case "lecturer", "teacher":
		return RoleLecturer, true
	case "grader", "grading-engine":
		return RoleGrader, true
	}
	return "", false
}

// Principal is the verified caller of a request. It is only ever built from
// a verified token, never from request parameters.
type Principal struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role"`
	MatNo string   `json:"mat_no,omitempty"`
}

// ActorID is the identity recorded as approved_by on a transition. The
// stable subject id wins over the display name, which need not be unique.
func (p *Principal) ActorID() string {
	if p == nil {
		return ""
	}
	if id := strings.TrimSpace(p.ID); id != "" {
		return id
	}
	return strings.TrimSpace(p.Name)
}

func (p *Principal) HasRole(roles ...UserRole) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
