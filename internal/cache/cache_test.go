package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(mr.Addr())
	require.NoError(t, err)
	SetClient(c)
	t.Cleanup(func() {
		SetClient(nil)
		_ = c.Close()
	})
	return mr
}

func TestAside_LoadsOnceThenHits(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	calls := 0
	load := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			*dest = cachedThing{Name: "acme", Items: []string{"a", "b"}}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, "thing:1", &first, time.Minute, load(&first)))
	assert.Equal(t, "acme", first.Name)
	assert.True(t, mr.Exists("thing:1"))

	var second cachedThing
	require.NoError(t, Aside(ctx, "thing:1", &second, time.Minute, load(&second)))
	assert.Equal(t, []string{"a", "b"}, second.Items)
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)
	var third cachedThing
	require.NoError(t, Aside(ctx, "thing:1", &third, time.Minute, load(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_LoaderErrorIsNotCached(t *testing.T) {
	mr := useMiniredis(t)
	boom := errors.New("db down")

	var dest cachedThing
	err := Aside(context.Background(), "thing:err", &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("thing:err"))
}

func TestAside_WithoutClientCallsLoader(t *testing.T) {
	SetClient(nil)

	var dest cachedThing
	require.NoError(t, Aside(context.Background(), "k", &dest, time.Minute, func() error {
		dest.Name = "direct"
		return nil
	}))
	assert.Equal(t, "direct", dest.Name)
}

func TestAside_ConcurrentMissesShareLoad(t *testing.T) {
	useMiniredis(t)

	var calls atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	results := make([]cachedThing, 8)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = Aside(context.Background(), "thing:shared", &results[i], time.Minute, func() error {
				calls.Add(1)
				<-release
				results[i] = cachedThing{Name: "shared"}
				return nil
			})
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(len(results)))
	for _, r := range results {
		assert.Equal(t, "shared", r.Name)
	}
}

func TestGetJSON_IgnoresCorruptEntries(t *testing.T) {
	mr := useMiniredis(t)
	require.NoError(t, mr.Set("thing:bad", "{not json"))

	var dest cachedThing
	assert.False(t, GetJSON(context.Background(), "thing:bad", &dest))
}

func TestInvalidateWidget(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	id := uuid.New()

	gen, ok := WidgetGeneration(ctx, id)
	require.True(t, ok)
	assert.Zero(t, gen)

	SetJSON(ctx, WidgetConfigKey(id, gen), cachedThing{Name: "cfg"}, time.Minute)
	SetJSON(ctx, WidgetHTMLKey(id, gen), "<div></div>", time.Minute)
	require.True(t, mr.Exists(WidgetHTMLKey(id, gen)))

	InvalidateWidget(ctx, id)
	assert.False(t, mr.Exists(WidgetHTMLKey(id, gen)))
	assert.False(t, mr.Exists(WidgetConfigKey(id, gen)))

	next, ok := WidgetGeneration(ctx, id)
	require.True(t, ok)
	assert.Equal(t, int64(1), next)

	// A load that read the old generation writes where nobody looks any more.
	SetJSON(ctx, WidgetHTMLKey(id, gen), "<div>stale</div>", time.Minute)
	var html string
	assert.False(t, GetJSON(ctx, WidgetHTMLKey(id, next), &html))
}

func TestWidgetGeneration_WithoutClient(t *testing.T) {
	SetClient(nil)
	_, ok := WidgetGeneration(context.Background(), uuid.New())
	assert.False(t, ok)
	InvalidateWidget(context.Background(), uuid.New())
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("6f1c2a4e-0000-4000-8000-000000000001")
	assert.Equal(t, "widget:cfg:6f1c2a4e-0000-4000-8000-000000000001:3", WidgetConfigKey(id, 3))
	assert.Equal(t, "widget:html:6f1c2a4e-0000-4000-8000-000000000001:0", WidgetHTMLKey(id, 0))
	assert.Equal(t, "widget:gen:6f1c2a4e-0000-4000-8000-000000000001", WidgetGenerationKey(id))
	assert.Equal(t, "collect:acme", CollectLinkKey("acme"))
}

func TestMetricsHookPassesNil(t *testing.T) {
	useMiniredis(t)
	err := GetClient().Get(context.Background(), "missing").Err()
	assert.ErrorIs(t, err, redis.Nil)
}
