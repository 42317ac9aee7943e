package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestDemandUpdateStatusIsConditional(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDemandRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE demands SET status = \?`).
		WithArgs("accepted", sqlmock.AnyArg(), "d1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(ctx, "d1", model.StatusPending, model.StatusAccepted))

	// The losing writer of a race matches no row.
	mock.ExpectExec(`UPDATE demands SET status = \?`).
		WithArgs("rejected", sqlmock.AnyArg(), "d1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateStatus(ctx, "d1", model.StatusPending, model.StatusRejected)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDemandSaveLocationPinsVersionAndStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDemandRepo(db)
	loc := model.Location{
		Coordinates: model.Coordinates{Lat: 48.85, Lng: 2.35},
		ConfirmedBy: model.ConfirmedByProvider,
		ConfirmedAt: time.Now(),
	}

	mock.ExpectExec(`UPDATE demands\s+SET location_lat`).
		WithArgs(48.85, 2.35, nil, "provider", sqlmock.AnyArg(), nil, sqlmock.AnyArg(), "d1", 3, "accepted").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveLocation(context.Background(), "d1", 3, loc, nil)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDemandGetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDemandRepo(db)
	now := time.Now().UTC().Truncate(time.Second)
	cols := []string{"id", "client_identity_id", "provider_identity_id", "service_id", "message", "status",
		"location_lat", "location_lng", "location_address", "location_confirmed_by", "location_confirmed_at",
		"appointment_date", "version", "created_at", "updated_at"}

	mock.ExpectQuery(`SELECT .+ FROM demands WHERE id = \?`).WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("d1", "client-1", "provider-1", "s1", "hello", "accepted",
			48.85, 2.35, "Rue X", "both", now, nil, 4, now, now))

	d, err := repo.GetByID(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, d.Status)
	assert.Equal(t, 4, d.Version)
	require.NotNil(t, d.Location)
	assert.Equal(t, model.ConfirmedByBoth, d.Location.ConfirmedBy)
	assert.Equal(t, "Rue X", d.Location.Address)
	assert.Nil(t, d.AppointmentDate)

	mock.ExpectQuery(`SELECT .+ FROM demands WHERE id = \?`).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
