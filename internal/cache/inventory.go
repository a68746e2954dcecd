package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quotewall/internal/middleware"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	WidgetConfigKeyPrefix     = "widget:cfg:%s:%d"
	WidgetHTMLKeyPrefix       = "widget:html:%s:%d"
	WidgetGenerationKeyPrefix = "widget:gen:%s"
	CollectLinkKeyPrefix  = "collect:%s"
)

const (
	WidgetConfigTTL = 5 * time.Minute
	CollectLinkTTL  = 2 * time.Minute
)

func WidgetConfigKey(widgetID uuid.UUID, gen int64) string {
	return fmt.Sprintf(WidgetConfigKeyPrefix, widgetID, gen)
}

// WidgetHTMLKey caches rendered markup. Its TTL comes from WIDGET_CACHE_TTL_SECONDS.
func WidgetHTMLKey(widgetID uuid.UUID, gen int64) string {
	return fmt.Sprintf(WidgetHTMLKeyPrefix, widgetID, gen)
}

func WidgetGenerationKey(widgetID uuid.UUID) string {
	return fmt.Sprintf(WidgetGenerationKeyPrefix, widgetID)
}

// WidgetGeneration returns the generation that cached widget entries are keyed by. A load
// must read it before touching the database and write under that generation, so a load that
// overlaps an invalidation only ever fills an orphaned key. ok is false when the generation
// cannot be read; the caller must then bypass the cache.
func WidgetGeneration(ctx context.Context, widgetID uuid.UUID) (gen int64, ok bool) {
	if client == nil {
		return 0, false
	}
	gen, err := client.Get(ctx, WidgetGenerationKey(widgetID)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, true
	case err != nil:
		middleware.Logger.WarnContext(ctx, "widget generation read failed",
			slog.String("widget_id", widgetID.String()), slog.String("error", err.Error()))
		return 0, false
	}
	return gen, true
}

func CollectLinkKey(slug string) string {
	return fmt.Sprintf(CollectLinkKeyPrefix, slug)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateWidget moves the widget to a new generation and drops the entries of the old one.
func InvalidateWidget(ctx context.Context, widgetID uuid.UUID) {
	if client == nil {
		return
	}
	next, err := client.Incr(ctx, WidgetGenerationKey(widgetID)).Result()
	if err != nil {
		middleware.Logger.WarnContext(ctx, "widget invalidation failed",
			slog.String("widget_id", widgetID.String()), slog.String("error", err.Error()))
		return
	}
	Invalidate(ctx, WidgetConfigKey(widgetID, next-1), WidgetHTMLKey(widgetID, next-1))
}

func InvalidateCollectLink(ctx context.Context, slug string) {
	Invalidate(ctx, CollectLinkKey(slug))
}
