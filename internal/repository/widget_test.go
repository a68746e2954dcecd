package repository

import (
	"context"
	"testing"

	"quotewall/internal/models"
	"quotewall/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWidgetRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewWidgetRepository(db)
	ctx := context.Background()
	tenant := testutil.CreateTenant(t, db, "acme", "owner")

	t.Run("New widget has an empty allow-list", func(t *testing.T) {
		cfg, err := repo.GetByID(ctx, tenant.Widget.ID)
		require.NoError(t, err)
		assert.NotNil(t, cfg.AllowedDomains)
		assert.Empty(t, cfg.AllowedDomains)
		assert.Nil(t, cfg.GridGap)
	})

	t.Run("Unknown widget", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("Update keeps allow-list", func(t *testing.T) {
		_, err := repo.SetAllowedDomains(ctx, tenant.Project.ID, []string{"https://example.com"})
		require.NoError(t, err)

		gap := 0
		show := false
		cfg := &models.WidgetConfig{
			ID:            tenant.Widget.ID,
			ProjectID:     tenant.Project.ID,
			PrimaryColor:  "#111111",
			DisplayLayout: models.DisplayLayoutGrid,
			DisplayOrder:  models.DisplayOrderOldest,
			ShowRating:    &show,
			GridGap:       &gap,
		}
		require.NoError(t, repo.Update(ctx, cfg))

		got, err := repo.GetByProject(ctx, tenant.Project.ID)
		require.NoError(t, err)
		assert.Equal(t, "#111111", got.PrimaryColor)
		assert.Equal(t, models.DisplayLayoutGrid, got.DisplayLayout)
		require.NotNil(t, got.GridGap)
		assert.Equal(t, 0, *got.GridGap)
		require.NotNil(t, got.ShowRating)
		assert.False(t, *got.ShowRating)
		assert.Nil(t, got.ShowAvatar)
		assert.Equal(t, []string{"https://example.com"}, []string(got.AllowedDomains))
	})

	t.Run("Update of another project's widget", func(t *testing.T) {
		err := repo.Update(ctx, &models.WidgetConfig{ID: tenant.Widget.ID, ProjectID: uuid.New()})
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}
