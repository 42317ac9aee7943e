package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/model"
)

func TestCreateSeedDeduplicatesOnSeedKey(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMessageRepo(db)
	ctx := context.Background()
	seed := func() *model.Message {
		return &model.Message{ID: "m1", DemandID: "d1", FromIdentityID: "provider-1", ToIdentityID: "client-1", Content: "hi"}
	}

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs("m1", "d1", "provider-1", "client-1", "hi", "d1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	m := seed()
	created, err := repo.CreateSeed(ctx, m)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, m.Seed)

	mock.ExpectExec(`INSERT INTO messages`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'd1' for key 'seed_key'"})
	created, err = repo.CreateSeed(ctx, seed())
	require.NoError(t, err)
	assert.False(t, created)
}

func TestMarkReadOnlyTouchesRecipient(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMessageRepo(db)

	mock.ExpectExec(`UPDATE messages SET is_read = 1 WHERE demand_id = \? AND to_identity_id = \?`).
		WithArgs("d1", "client-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.MarkRead(context.Background(), "d1", "client-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
