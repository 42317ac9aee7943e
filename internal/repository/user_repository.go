package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/iliyamo/service-marketplace/internal/database"
	"github.com/iliyamo/service-marketplace/internal/model"
)

// UserRepo persists identities in the identity service's database.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const identityColumns = "id,email,password_hash,role,display_name,city,created_at,updated_at"

// NormalizeEmail lower-cases and trims an email so uniqueness is case
// insensitive.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create inserts an identity.  The caller supplies the id and the password
// hash; ErrDuplicate is returned when the email is taken.
func (r *UserRepo) Create(ctx context.Context, u *model.Identity) error {
	u.Email = NormalizeEmail(u.Email)
	now := time.Now().UTC().Truncate(time.Second)
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO identities ("+identityColumns+") VALUES (?,?,?,?,?,?,?,?)",
		u.ID, u.Email, u.PasswordHash, string(u.Role), u.DisplayName, u.City, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if database.IsDuplicate(err) {
			return ErrDuplicate
		}
		return errors.Annotate(err, "insert identity")
	}
	return nil
}

// GetByEmail fetches an identity by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.Identity, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+identityColumns+" FROM identities WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByID fetches an identity by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.Identity, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+identityColumns+" FROM identities WHERE id=? LIMIT 1", id))
}

// Delete removes an identity.  It is only used to compensate a provider
// registration whose profile could not be created; deleting a missing row
// is not an error so the compensation can be repeated safely.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM identities WHERE id=?", id)
	return errors.Annotate(err, "delete identity")
}

func (r *UserRepo) scanOne(row *sql.Row) (model.Identity, error) {
	var (
		u    model.Identity
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.DisplayName, &u.City, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Identity{}, ErrNotFound
	}
	if err != nil {
		return model.Identity{}, errors.Annotate(err, "scan identity")
	}
	u.Role = model.Role(role)
	return u, nil
}
