package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the statements embedded in a session cookie.
//
// Admin sessions carry Email and Name; salesperson sessions additionally
// carry Slug. A super-admin session carries only the SuperAdmin flag and
// no identity, deliberately: it is a single-tenant escalation path, not
// a per-user account.
type SessionClaims struct {
	jwt.RegisteredClaims

	Role       Role   `json:"role"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	Slug       string `json:"slug,omitempty"`
	SuperAdmin bool   `json:"superAdmin,omitempty"`
}

// RoleSuperAdmin scopes super-admin sessions. It is a session scope
// only; there is no matching credential table.
const RoleSuperAdmin Role = "superadmin"
