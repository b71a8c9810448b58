package models

import "time"

// Role identifies which credential table a user row lives in. The super
// admin has no row at all: it is a shared secret, not an account.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleSalesperson Role = "sales"
)

// User is a credential row for an admin or a salesperson.
//
// Password holds either a bcrypt hash or a legacy plaintext value left
// over from the pre-hashing era; password.LooksHashed tells them apart.
type User struct {
	ID        string
	Email     string
	Name      string
	Slug      string // salespeople only, unique, lowercase
	Title     string // salespeople only
	Phone     string // salespeople only
	Password  string
	IsActive  bool
	CreatedBy string // admins only
	CreatedAt time.Time
	UpdatedAt time.Time
	LastLogin *time.Time
}
