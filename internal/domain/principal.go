package domain

// Role of an authenticated user
type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleOwner
}

// Principal is the authenticated caller
type Principal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsOwner reports whether p may manage restaurant inventory
func (p *Principal) IsOwner() bool {
	return p != nil && p.Role == RoleOwner
}
