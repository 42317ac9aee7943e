package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// DemandRepo provides persistence for demands.  A demand row is the only
// ordering point of the lifecycle: every write is a single conditional
// UPDATE, so concurrent writers can never both apply a transition.  All
// timestamp fields are stored in UTC.
type DemandRepo struct {
	db *sql.DB
}

// NewDemandRepo returns a new DemandRepo bound to the given database.
func NewDemandRepo(db *sql.DB) *DemandRepo { return &DemandRepo{db: db} }

const demandColumns = `id, client_identity_id, provider_identity_id, service_id, COALESCE(message, ''), status,
	location_lat, location_lng, location_address, location_confirmed_by, location_confirmed_at,
	appointment_date, version, created_at, updated_at`

// Create inserts a new demand.  The caller has already resolved the
// provider reference to an identity id and set Status to pending.
func (r *DemandRepo) Create(ctx context.Context, d *model.Demand) error {
	now := time.Now().UTC().Truncate(time.Second)
	d.CreatedAt, d.UpdatedAt = now, now
	if d.Version == 0 {
		d.Version = 1
	}
	const q = `INSERT INTO demands (id, client_identity_id, provider_identity_id, service_id, message, status, version, created_at, updated_at)
			   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, d.ID, d.ClientIdentityID, d.ProviderIdentityID, d.ServiceID, d.Message,
		string(d.Status), d.Version, d.CreatedAt, d.UpdatedAt)
	return errors.Annotate(err, "insert demand")
}

// GetByID loads a demand.  ErrNotFound when it does not exist.
func (r *DemandRepo) GetByID(ctx context.Context, id string) (model.Demand, error) {
	return scanDemand(r.db.QueryRowContext(ctx, `SELECT `+demandColumns+` FROM demands WHERE id = ?`, id))
}

// ListByParticipant returns demands where identityID is either party,
// newest first, bounded by page.
func (r *DemandRepo) ListByParticipant(ctx context.Context, identityID string, page model.Page) ([]model.Demand, error) {
	page = page.Normalize()
	const q = `SELECT ` + demandColumns + ` FROM demands
			   WHERE client_identity_id = ? OR provider_identity_id = ?
			   ORDER BY created_at DESC, id
			   LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, identityID, identityID, page.Limit, page.Offset)
	if err != nil {
		return nil, errors.Annotate(err, "list demands")
	}
	defer rows.Close()
	out := []model.Demand{}
	for rows.Next() {
		d, err := scanDemand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, errors.Trace(rows.Err())
}

// UpdateStatus moves a demand from one status to another.  The WHERE
// clause pins the current status, which makes the transition exactly-once:
// when two callers race, the second matches no row and gets ErrConflict.
func (r *DemandRepo) UpdateStatus(ctx context.Context, id string, from, to model.DemandStatus) error {
	const q = `UPDATE demands SET status = ?, version = version + 1, updated_at = ?
			   WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, string(to), time.Now().UTC().Truncate(time.Second), id, string(from))
	if err != nil {
		return errors.Annotate(err, "update demand status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// SaveLocation writes the meeting location and appointment date.  The
// update is conditional on the version the caller read and on the demand
// still being accepted; ErrConflict otherwise.
func (r *DemandRepo) SaveLocation(ctx context.Context, id string, version int, loc model.Location, appointment *time.Time) error {
	const q = `UPDATE demands
			   SET location_lat = ?, location_lng = ?, location_address = ?, location_confirmed_by = ?,
				   location_confirmed_at = ?, appointment_date = COALESCE(?, appointment_date),
				   version = version + 1, updated_at = ?
			   WHERE id = ? AND version = ? AND status = ?`
	var appt interface{}
	if appointment != nil {
		appt = appointment.UTC()
	}
	res, err := r.db.ExecContext(ctx, q,
		loc.Coordinates.Lat, loc.Coordinates.Lng, nullString(loc.Address), string(loc.ConfirmedBy),
		loc.ConfirmedAt.UTC(), appt, time.Now().UTC().Truncate(time.Second),
		id, version, string(model.StatusAccepted))
	if err != nil {
		return errors.Annotate(err, "save demand location")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func scanDemand(row rowScanner) (model.Demand, error) {
	var (
		d           model.Demand
		status      string
		lat, lng    sql.NullFloat64
		address     sql.NullString
		confirmedBy sql.NullString
		confirmedAt sql.NullTime
		appointment sql.NullTime
	)
	err := row.Scan(&d.ID, &d.ClientIdentityID, &d.ProviderIdentityID, &d.ServiceID, &d.Message, &status,
		&lat, &lng, &address, &confirmedBy, &confirmedAt, &appointment, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Demand{}, ErrNotFound
	}
	if err != nil {
		return model.Demand{}, errors.Annotate(err, "scan demand")
	}
	d.Status = model.DemandStatus(status)
	// A location exists once the provider has proposed coordinates.
	if lat.Valid && lng.Valid {
		d.Location = &model.Location{
			Coordinates: model.Coordinates{Lat: lat.Float64, Lng: lng.Float64},
			Address:     address.String,
			ConfirmedBy: model.ConfirmedBy(confirmedBy.String),
		}
		if confirmedAt.Valid {
			d.Location.ConfirmedAt = confirmedAt.Time
		}
	}
	if appointment.Valid {
		t := appointment.Time
		d.AppointmentDate = &t
	}
	return d, nil
}
