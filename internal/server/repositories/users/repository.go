package users

import (
	"context"

	"github.com/dealerdesk/dealerdesk/internal/server/models"
)

// Repository is the credential store adapter over the per-role user
// tables.
type Repository interface {
	// FindByEmail looks a user up by normalized email within the
	// given role's table, returning common.ErrorNotFound when no row
	// matches.
	FindByEmail(ctx context.Context, role models.Role, email string) (*models.User, error)

	// UpdatePassword replaces the stored credential. Used both for
	// explicit admin-driven resets and for opportunistic migration of
	// legacy plaintext passwords.
	UpdatePassword(ctx context.Context, role models.Role, id, secret string) error

	// TouchLastLogin stamps a successful authentication. Best effort:
	// callers must not fail the login when it errors.
	TouchLastLogin(ctx context.Context, role models.Role, id string) error

	ListSalespeople(ctx context.Context) ([]models.User, error)
	CreateSalesperson(ctx context.Context, u *models.User) (*models.User, error)
	SetActive(ctx context.Context, role models.Role, id string, active bool) error
}
