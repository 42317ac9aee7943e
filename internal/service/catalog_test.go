package service

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/model"
)

func TestCatalogReads(t *testing.T) {
	svc := NewCatalogService(newMemCatalog(), &mockRegistry{})
	ctx := context.Background()

	home, err := svc.CreateCategory(ctx, model.Category{Name: " Home "})
	require.NoError(t, err)
	assert.Equal(t, "Home", home.Name)
	garden, err := svc.CreateCategory(ctx, model.Category{Name: "Garden"})
	require.NoError(t, err)

	plumbing, err := svc.CreateService(ctx, model.Service{Name: "Plumbing", CategoryID: home.ID})
	require.NoError(t, err)
	_, err = svc.CreateService(ctx, model.Service{Name: "Mowing", CategoryID: garden.ID})
	require.NoError(t, err)

	cats, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)

	all, err := svc.ListServices(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	inHome, err := svc.ListServices(ctx, home.ID)
	require.NoError(t, err)
	require.Len(t, inHome, 1)
	assert.Equal(t, "Plumbing", inHome[0].Name)

	detail, err := svc.GetService(ctx, plumbing.ID)
	require.NoError(t, err)
	assert.True(t, detail.BelongsTo(home.ID))
	assert.False(t, detail.BelongsTo(garden.ID))

	_, err = svc.GetService(ctx, "missing")
	assert.True(t, errors.Is(err, errors.NotFound))

	_, err = svc.CreateCategory(ctx, model.Category{Name: "  "})
	assert.True(t, errors.Is(err, errors.NotValid))
}
