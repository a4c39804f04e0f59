package observability

import (
	"context"
	"testing"
	"time"

	"predictions/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsProvider_NilIsSafe(t *testing.T) {
	var mp *MetricsProvider

	assert.NotPanics(t, func() {
		mp.RecordSettlement(OutcomeResolved, time.Second, 100, 5)
		mp.RecordTransitions("LOCKED", 3)
		mp.RecordStakePlaced()
		mp.RecordNATSMessagePublished("event_resolved")
		mp.RecordHTTPRequest("GET", "/api/health", 200, time.Millisecond)
	})
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestMetricsProvider_Disabled(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = false

	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))
	assert.False(t, mp.isEnabled())

	assert.NotPanics(t, func() {
		mp.RecordSettlement(OutcomeRefunded, time.Second, 300, 0)
		mp.RecordStakePlaced()
	})
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestMetricsProvider_NoneExporter(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelExporterType = "none"

	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))
	assert.False(t, mp.isEnabled())
}

func TestMetricsProvider_UnknownExporter(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelExporterType = "carrier-pigeon"

	mp := NewMetricsProvider(cfg)
	assert.Error(t, mp.Initialize(context.Background()))
}
