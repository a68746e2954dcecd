package service

import (
	"context"
	"testing"

	"quotewall/internal/cache"
	"quotewall/internal/models"
	"quotewall/internal/repository"
	"quotewall/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectLinkRepoStub is a stub for repository.CollectLinkRepository.
type collectLinkRepoStub struct {
	getByProjectFn func(context.Context, uuid.UUID) (*models.CollectLink, error)
	getBySlugFn    func(context.Context, string) (*models.CollectLink, error)
	toggleFn       func(context.Context, uuid.UUID) (*models.CollectLink, error)
}

func (s *collectLinkRepoStub) GetByProject(ctx context.Context, projectID uuid.UUID) (*models.CollectLink, error) {
	return s.getByProjectFn(ctx, projectID)
}
func (s *collectLinkRepoStub) GetBySlug(ctx context.Context, slug string) (*models.CollectLink, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *collectLinkRepoStub) Toggle(ctx context.Context, projectID uuid.UUID) (*models.CollectLink, error) {
	return s.toggleFn(ctx, projectID)
}

func TestCollectLinkService_PublicPage(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	tenant := testutil.CreateTenant(t, db, "acme", "owner")
	testutil.CreateToken(t, db, tenant.Project.ID, "abc123")
	testutil.CreateToken(t, db, tenant.Project.ID, "spent", testutil.Used())
	svc := newIngestion(db)
	ctx := context.Background()

	page, err := svc.links.PublicPage(ctx, "acme", "abc123")
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusValid, page.Status)
	assert.Equal(t, "Project acme", page.ProjectName)
	assert.Equal(t, models.DefaultThankYouMessage, page.ThankYouMessage)

	page, err = svc.links.PublicPage(ctx, "acme", "spent")
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusUsed, page.Status)
	assert.Empty(t, page.ProjectName)

	page, err = svc.links.PublicPage(ctx, "acme", "")
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusInvalid, page.Status)
}

func TestCollectLinkService_ToggleInvalidatesCache(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	tenant := testutil.CreateTenant(t, db, "acme", "owner")
	testutil.CreateToken(t, db, tenant.Project.ID, "abc123")

	mr, client := testutil.NewRedis(t)
	cache.SetClient(client)
	t.Cleanup(func() { cache.SetClient(nil) })

	svc := newIngestion(db)
	ctx := context.Background()

	page, err := svc.links.PublicPage(ctx, "acme", "abc123")
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusValid, page.Status)
	assert.True(t, mr.Exists(cache.CollectLinkKey("acme")))

	link, err := svc.links.Toggle(ctx, tenant.Project.ID)
	require.NoError(t, err)
	assert.False(t, link.IsActive)
	assert.False(t, mr.Exists(cache.CollectLinkKey("acme")))

	page, err = svc.links.PublicPage(ctx, "acme", "abc123")
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusClosed, page.Status)
}

func TestCollectLinkService_MissingLinkIsClosed(t *testing.T) {
	acme := &models.Project{ID: uuid.New(), Slug: "acme"}
	tokens := newStubTokenService(stubTokenLookup(&models.CollectionToken{Token: "abc123", ProjectID: acme.ID, Project: acme}))
	svc := NewCollectLinkService(&collectLinkRepoStub{
		getBySlugFn: func(_ context.Context, slug string) (*models.CollectLink, error) {
			return nil, models.NewNotFoundError("CollectLink", slug)
		},
	}, tokens, nil)

	page, err := svc.PublicPage(context.Background(), "acme", "abc123")
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusClosed, page.Status)
}

func TestCollectLinkService_Get(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	tenant := testutil.CreateTenant(t, db, "acme", "owner")
	svc := NewCollectLinkService(repository.NewCollectLinkRepository(db), nil, nil)

	link, err := svc.Get(context.Background(), tenant.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", link.Slug)
	assert.True(t, link.IsActive)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
