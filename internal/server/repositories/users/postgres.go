package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dealerdesk/dealerdesk/internal/common"
	"github.com/dealerdesk/dealerdesk/internal/dbx"
	"github.com/dealerdesk/dealerdesk/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func tableFor(role models.Role) (string, error) {
	switch role {
	case models.RoleAdmin:
		return "admin_users", nil
	case models.RoleSalesperson:
		return "salespeople", nil
	default:
		return "", fmt.Errorf("no credential table for role %q", role)
	}
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, role models.Role, email string) (*models.User, error) {
	user := &models.User{}

	switch role {
	case models.RoleAdmin:
		query :=
			`SELECT id, email, name, password, is_active, created_by, last_login
			 FROM admin_users
			 WHERE lower(email) = lower($1)
			 `
		err := r.db.QueryRowContext(ctx, query, email).Scan(
			&user.ID, &user.Email, &user.Name, &user.Password,
			&user.IsActive, &user.CreatedBy, &user.LastLogin)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, common.ErrorNotFound
			}
			return nil, fmt.Errorf("db error: %w", err)
		}

	case models.RoleSalesperson:
		query :=
			`SELECT id, email, name, slug, title, phone, password, is_active, last_login
			 FROM salespeople
			 WHERE lower(email) = lower($1)
			 `
		err := r.db.QueryRowContext(ctx, query, email).Scan(
			&user.ID, &user.Email, &user.Name, &user.Slug, &user.Title,
			&user.Phone, &user.Password, &user.IsActive, &user.LastLogin)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, common.ErrorNotFound
			}
			return nil, fmt.Errorf("db error: %w", err)
		}

	default:
		return nil, fmt.Errorf("no credential table for role %q", role)
	}

	return user, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, role models.Role, id, secret string) error {
	table, err := tableFor(role)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`UPDATE %s SET password = $1, updated_at = now() WHERE id = $2`, table)

	res, err := r.db.ExecContext(ctx, query, secret, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, role models.Role, id string) error {
	table, err := tableFor(role)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`UPDATE %s SET last_login = now() WHERE id = $1`, table)

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListSalespeople(ctx context.Context) ([]models.User, error) {
	query :=
		`SELECT id, email, name, slug, title, phone, is_active, created_at, last_login
		 FROM salespeople
		 ORDER BY name
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var list []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Slug, &u.Title,
			&u.Phone, &u.IsActive, &u.CreatedAt, &u.LastLogin); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return list, nil
}

func (r *PostgresRepository) CreateSalesperson(ctx context.Context, u *models.User) (*models.User, error) {
	query :=
		`INSERT INTO salespeople (id, email, name, slug, title, phone, password, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		u.ID, u.Email, u.Name, u.Slug, u.Title, u.Phone, u.Password, u.IsActive,
	).Scan(&u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) SetActive(ctx context.Context, role models.Role, id string, active bool) error {
	table, err := tableFor(role)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`UPDATE %s SET is_active = $1, updated_at = now() WHERE id = $2`, table)

	res, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
