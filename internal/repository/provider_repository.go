package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"

	"github.com/iliyamo/service-marketplace/internal/database"
	"github.com/iliyamo/service-marketplace/internal/model"
)

// ProviderRepo persists provider profiles.  identity_id carries a unique
// key, which is what enforces one profile per provider identity even when
// two registrations race.
type ProviderRepo struct {
	db *sql.DB
}

func NewProviderRepo(db *sql.DB) *ProviderRepo { return &ProviderRepo{db: db} }

const profileColumns = `id, identity_id, display_name, category_id, service_id, experience_years, city,
	profile_image, certificate_image, available, verified, created_at, updated_at`

// Create inserts a profile.  ErrDuplicate means the identity already has one.
func (r *ProviderRepo) Create(ctx context.Context, p *model.ProviderProfile) error {
	now := time.Now().UTC().Truncate(time.Second)
	p.CreatedAt, p.UpdatedAt = now, now
	const q = `INSERT INTO provider_profiles (` + profileColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		p.ID, p.IdentityID, p.DisplayName, p.CategoryID, p.ServiceID, p.ExperienceYears, p.City,
		p.ProfileImage, p.CertificateImage, p.Available, p.Verified, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if database.IsDuplicate(err) {
			return ErrDuplicate
		}
		return errors.Annotate(err, "insert provider profile")
	}
	return nil
}

// GetByID fetches a profile by its own id.
func (r *ProviderRepo) GetByID(ctx context.Context, id string) (model.ProviderProfile, error) {
	return scanProfile(r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM provider_profiles WHERE id = ?`, id))
}

// GetByIdentity fetches the profile owned by an identity.
func (r *ProviderRepo) GetByIdentity(ctx context.Context, identityID string) (model.ProviderProfile, error) {
	return scanProfile(r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM provider_profiles WHERE identity_id = ?`, identityID))
}

// List returns profiles matching the filter, newest first.
func (r *ProviderRepo) List(ctx context.Context, f model.ProviderFilter) ([]model.ProviderProfile, error) {
	q := `SELECT ` + profileColumns + ` FROM provider_profiles WHERE 1=1`
	args := []interface{}{}
	if f.ServiceID != "" {
		q += ` AND service_id = ?`
		args = append(args, f.ServiceID)
	}
	if f.CategoryID != "" {
		q += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.City != "" {
		q += ` AND city = ?`
		args = append(args, f.City)
	}
	if f.Available != nil {
		q += ` AND available = ?`
		args = append(args, *f.Available)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Annotate(err, "list provider profiles")
	}
	defer rows.Close()
	out := []model.ProviderProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, errors.Trace(rows.Err())
}

// SetVerified flips the verification flag.  ErrNotFound when no row matched.
func (r *ProviderRepo) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.update(ctx, `UPDATE provider_profiles SET verified = ?, updated_at = ? WHERE id = ?`, verified, id)
}

// SetAvailability updates the availability of the profile owned by identityID.
func (r *ProviderRepo) SetAvailability(ctx context.Context, identityID string, available bool) error {
	return r.update(ctx, `UPDATE provider_profiles SET available = ?, updated_at = ? WHERE identity_id = ?`, available, identityID)
}

func (r *ProviderRepo) update(ctx context.Context, q string, flag bool, key string) error {
	res, err := r.db.ExecContext(ctx, q, flag, time.Now().UTC().Truncate(time.Second), key)
	if err != nil {
		return errors.Annotate(err, "update provider profile")
	}
	// MySQL reports 0 affected rows when the value is unchanged, so a miss
	// is confirmed with a lookup before reporting ErrNotFound.
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM provider_profiles WHERE id = ? OR identity_id = ?`, key, key).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return errors.Trace(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (model.ProviderProfile, error) {
	var p model.ProviderProfile
	err := row.Scan(&p.ID, &p.IdentityID, &p.DisplayName, &p.CategoryID, &p.ServiceID, &p.ExperienceYears, &p.City,
		&p.ProfileImage, &p.CertificateImage, &p.Available, &p.Verified, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProviderProfile{}, ErrNotFound
	}
	if err != nil {
		return model.ProviderProfile{}, errors.Annotate(err, "scan provider profile")
	}
	return p, nil
}
