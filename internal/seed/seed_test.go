package seed

import (
	"context"
	"testing"

	"quotewall/internal/models"
	"quotewall/internal/testutil"
	"quotewall/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTestimonial_PassesSubmissionRules(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true})
	for i := 0; i < 50; i++ {
		p := f.BuildTestimonial().Normalize()
		assert.Nil(t, validation.ValidateTestimonial(p), "payload %+v", p)
	}
}

func TestParsePreset(t *testing.T) {
	raw := []byte(`
name: demo
projects:
  - name: Acme
    slug: acme
    owner: member_1
    active: true
    allowed_domains: [https://acme.com]
    testimonials: {approved: 2, featured: 1, pending: 1}
    tokens: 3
`)
	p, err := ParsePreset(raw)
	require.NoError(t, err)
	require.Len(t, p.Projects, 1)
	assert.Equal(t, "acme", p.Projects[0].Slug)
	assert.Equal(t, []string{"https://acme.com"}, p.Projects[0].AllowedDomains)
	assert.Equal(t, 4, p.Projects[0].Testimonials.total())

	tests := []struct {
		name string
		raw  string
	}{
		{"no projects", "name: empty\n"},
		{"missing owner", "projects:\n  - slug: acme\n"},
		{"duplicate slug", "projects:\n  - {slug: acme, owner: a}\n  - {slug: acme, owner: b}\n"},
		{"negative counts", "projects:\n  - {slug: acme, owner: a, tokens: -1}\n"},
		{"not yaml", "projects: [unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePreset([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestApplyPreset(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	s := NewSeeder(db, Options{})

	require.NoError(t, s.ApplyPreset(ctx, DemoPreset))

	var acme models.Project
	require.NoError(t, db.Where("slug = ?", "acme").First(&acme).Error)

	var link models.CollectLink
	require.NoError(t, db.Where("project_id = ?", acme.ID).First(&link).Error)
	assert.True(t, link.IsActive)

	var cfg models.WidgetConfig
	require.NoError(t, db.Where("project_id = ?", acme.ID).First(&cfg).Error)
	assert.Equal(t, []string{"http://localhost:3000", "https://acme.example"}, []string(cfg.AllowedDomains))

	count := func(query string, args ...interface{}) int64 {
		var n int64
		require.NoError(t, db.Model(&models.Testimonial{}).Where(query, args...).Count(&n).Error)
		return n
	}
	assert.Equal(t, int64(11), count("project_id = ?", acme.ID))
	assert.Equal(t, int64(8), count("project_id = ? AND is_approved = ?", acme.ID, true))
	assert.Equal(t, int64(2), count("project_id = ? AND is_featured = ?", acme.ID, true))

	// Every testimonial consumed its own token; the open ones are left over.
	var used, open int64
	require.NoError(t, db.Model(&models.CollectionToken{}).Where("project_id = ? AND used = ?", acme.ID, true).Count(&used).Error)
	require.NoError(t, db.Model(&models.CollectionToken{}).Where("project_id = ? AND used = ?", acme.ID, false).Count(&open).Error)
	assert.Equal(t, int64(11), used)
	assert.Equal(t, int64(5), open)

	require.NoError(t, s.ClearAll(ctx))
	var projects int64
	require.NoError(t, db.Model(&models.Project{}).Count(&projects).Error)
	assert.Zero(t, projects)
}

func TestSeed_RandomProjects(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	s := NewSeeder(db, Options{MaxDays: 7})

	require.NoError(t, s.Seed(context.Background(), "member_1", Counts{Projects: 2, Testimonials: 6, Tokens: 2}))

	var memberships []models.ProjectMember
	require.NoError(t, db.Where("member_id = ?", "member_1").Find(&memberships).Error)
	assert.Len(t, memberships, 2)

	var total int64
	require.NoError(t, db.Model(&models.Testimonial{}).Count(&total).Error)
	assert.Equal(t, int64(12), total)
}
