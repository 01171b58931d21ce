package models

// Role is the caller's authorization level
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a header value to a role; anything but "admin" is a plain user
func ParseRole(raw string) Role {
	if Role(raw) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Caller identifies who is making a request
type Caller struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the caller holds the admin role
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanAccess reports whether the caller may see a resource owned by ownerID
func (c Caller) CanAccess(ownerID string) bool {
	return c.IsAdmin() || c.UserID == ownerID
}
