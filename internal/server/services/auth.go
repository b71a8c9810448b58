// Package services holds the authentication and account-management
// logic shared by the three role-scoped endpoint variants. One service
// parameterized by role replaces what would otherwise be three
// near-duplicate handlers.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/dealerdesk/dealerdesk/internal/common"
	"github.com/dealerdesk/dealerdesk/internal/logging"
	"github.com/dealerdesk/dealerdesk/internal/server/mail"
	"github.com/dealerdesk/dealerdesk/internal/server/models"
	"github.com/dealerdesk/dealerdesk/internal/server/password"
	"github.com/dealerdesk/dealerdesk/internal/server/repositories/users"
	"github.com/dealerdesk/dealerdesk/internal/server/session"
	"github.com/google/uuid"
)

// UserSummary is the role-scoped shape returned to a freshly logged-in
// client.
type UserSummary struct {
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	Slug       string `json:"slug,omitempty"`
	SuperAdmin bool   `json:"superAdmin,omitempty"`
}

type AuthService struct {
	repo             users.Repository
	passwords        *password.Service
	sessions         *session.Issuer
	mailer           mail.Mailer
	superAdminSecret string
	log              logging.Logger
}

func NewAuthService(repo users.Repository, pw *password.Service, issuer *session.Issuer,
	mailer mail.Mailer, superAdminSecret string, log logging.Logger) *AuthService {
	return &AuthService{
		repo:             repo,
		passwords:        pw,
		sessions:         issuer,
		mailer:           mailer,
		superAdminSecret: superAdminSecret,
		log:              log.With("module", "auth"),
	}
}

// NormalizeEmail lowercases and trims the lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login authenticates an email/password pair against the given role's
// credential table and returns a session token plus the role-scoped
// user summary.
//
// Lookup failures of any kind — unknown email, inactive-row lookup
// errors, datastore trouble — collapse into common.ErrorUnauthorized so
// the caller cannot tell which part failed. Only a deactivated account
// with correct credentials earns the distinct common.ErrorDeactivated.
func (s *AuthService) Login(ctx context.Context, role models.Role, email, plaintext string) (string, *UserSummary, error) {
	email = NormalizeEmail(email)

	u, err := s.repo.FindByEmail(ctx, role, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "credential lookup failed", "role", role, "error", err)
		}
		return "", nil, common.ErrorUnauthorized
	}

	if !u.IsActive {
		return "", nil, common.ErrorDeactivated
	}

	if password.LooksHashed(u.Password) {
		if !s.passwords.Verify(plaintext, u.Password) {
			return "", nil, common.ErrorUnauthorized
		}
	} else {
		// Legacy plaintext credential: direct comparison, then a
		// silent rewrite as a hash. Concurrent logins may race the
		// rewrite; both encode the same plaintext, so last write wins.
		if subtle.ConstantTimeCompare([]byte(u.Password), []byte(plaintext)) != 1 {
			return "", nil, common.ErrorUnauthorized
		}
		s.migratePassword(ctx, role, u.ID, plaintext)
	}

	if err := s.repo.TouchLastLogin(ctx, role, u.ID); err != nil {
		s.log.Warn(ctx, "last_login update failed", "role", role, "id", u.ID, "error", err)
	}

	token, err := s.sessions.Issue(claimsFor(role, u))
	if err != nil {
		s.log.Error(ctx, "session issue failed", "role", role, "error", err)
		return "", nil, common.ErrorInternal
	}

	summary := &UserSummary{Email: u.Email, Name: u.Name}
	if role == models.RoleSalesperson {
		summary.Slug = u.Slug
	}
	return token, summary, nil
}

func (s *AuthService) migratePassword(ctx context.Context, role models.Role, id, plaintext string) {
	secret, err := s.passwords.Hash(plaintext)
	if err != nil {
		s.log.Error(ctx, "password migration hash failed", "role", role, "id", id, "error", err)
		return
	}
	if err := s.repo.UpdatePassword(ctx, role, id, secret); err != nil {
		s.log.Error(ctx, "password migration write failed", "role", role, "id", id, "error", err)
	}
}

func claimsFor(role models.Role, u *models.User) models.SessionClaims {
	c := models.SessionClaims{Role: role, Email: u.Email, Name: u.Name}
	if role == models.RoleSalesperson {
		c.Slug = u.Slug
	}
	return c
}

// SuperAdminLogin checks the shared secret configured in the
// environment. The resulting session carries only the super-admin flag:
// no identity, by design a coarse single-tenant escalation path.
func (s *AuthService) SuperAdminLogin(ctx context.Context, secret string) (string, *UserSummary, error) {
	if s.superAdminSecret == "" {
		return "", nil, common.ErrorUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.superAdminSecret), []byte(secret)) != 1 {
		return "", nil, common.ErrorUnauthorized
	}

	token, err := s.sessions.Issue(models.SessionClaims{
		Role:       models.RoleSuperAdmin,
		SuperAdmin: true,
	})
	if err != nil {
		s.log.Error(ctx, "session issue failed", "role", models.RoleSuperAdmin, "error", err)
		return "", nil, common.ErrorInternal
	}
	return token, &UserSummary{SuperAdmin: true}, nil
}

// ForgotPassword notifies the operator inbox when the submitted email
// matches an active account. It never reports whether that happened:
// the caller gets the same nil result for hits, misses, and lookup
// errors. The notification is fire-and-forget; a slow or failing mail
// provider must not stall or change the HTTP response.
func (s *AuthService) ForgotPassword(ctx context.Context, role models.Role, email string) {
	email = NormalizeEmail(email)

	u, err := s.repo.FindByEmail(ctx, role, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "forgot-password lookup failed", "role", role, "error", err)
		}
		return
	}
	if !u.IsActive {
		return
	}

	name, addr, at := u.Name, u.Email, time.Now()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.mailer.SendResetRequest(ctx, string(role), name, addr, at); err != nil {
			s.log.Error(ctx, "operator notification failed", "role", role, "error", err)
		}
	}()
}

// CreateSalesperson provisions a salesperson account with a hashed
// initial password and a lowercase-normalized unique slug.
func (s *AuthService) CreateSalesperson(ctx context.Context, name, email, slug, title, phone, plaintext string) (*models.User, error) {
	secret, err := s.passwords.Hash(plaintext)
	if err != nil {
		return nil, common.ErrorInternal
	}

	u := &models.User{
		ID:       uuid.NewString(),
		Email:    NormalizeEmail(email),
		Name:     strings.TrimSpace(name),
		Slug:     strings.ToLower(strings.TrimSpace(slug)),
		Title:    strings.TrimSpace(title),
		Phone:    strings.TrimSpace(phone),
		Password: secret,
		IsActive: true,
	}
	return s.repo.CreateSalesperson(ctx, u)
}

// ResetSalespersonPassword is the explicit admin-driven reset path.
func (s *AuthService) ResetSalespersonPassword(ctx context.Context, id, plaintext string) error {
	secret, err := s.passwords.Hash(plaintext)
	if err != nil {
		return common.ErrorInternal
	}
	return s.repo.UpdatePassword(ctx, models.RoleSalesperson, id, secret)
}

func (s *AuthService) ListSalespeople(ctx context.Context) ([]models.User, error) {
	return s.repo.ListSalespeople(ctx)
}

func (s *AuthService) SetSalespersonActive(ctx context.Context, id string, active bool) error {
	return s.repo.SetActive(ctx, models.RoleSalesperson, id, active)
}
