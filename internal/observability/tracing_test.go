package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{ServiceName: "quotewall-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	span, ctx := StartSpan(context.Background(), "test.op", attribute.String("k", "v"))
	assert.NotNil(t, ctx)
	span.Fail(errors.New("boom"))
	span.Fail(nil)
	span.End()
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{ServiceName: "quotewall-test", Enabled: true, Exporter: "zipkin"})
	assert.Error(t, err)
}

func TestNewSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", newSampler(1).Description())
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased{0.25}")
	assert.Contains(t, newSampler(-1).Description(), "TraceIDRatioBased{0}")
}

func TestTrackQuery_RecordsSample(t *testing.T) {
	before := testutil.CollectAndCount(DatabaseQueryLatency)
	done := TrackQuery("select", "observability_test_table")
	done()
	assert.Equal(t, before+1, testutil.CollectAndCount(DatabaseQueryLatency))
}
