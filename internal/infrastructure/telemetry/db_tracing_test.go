package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/kontor/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&widget{}))
	return db
}

func TestDBTracingPlugin(t *testing.T) {
	t.Run("disabled plugin registers nothing", func(t *testing.T) {
		db := setupTestDB(t)
		p := NewDBTracingPlugin(config.TelemetryConfig{Enabled: true}, "kontor", nil)
		require.NoError(t, p.Register(db))
		assert.Nil(t, db.Callback().Query().Get("otel_timing:after_query"))
	})

	t.Run("records query spans with table and slow flag", func(t *testing.T) {
		sr := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
		original := otel.GetTracerProvider()
		otel.SetTracerProvider(tp)
		t.Cleanup(func() { otel.SetTracerProvider(original) })

		db := setupTestDB(t)
		p := NewDBTracingPlugin(config.TelemetryConfig{
			Enabled:           true,
			DBTraceEnabled:    true,
			DBSlowQueryThresh: time.Nanosecond,
		}, "kontor", nil)
		require.NoError(t, p.Register(db))

		ctx := context.Background()
		require.NoError(t, db.WithContext(ctx).Create(&widget{Name: "a"}).Error)
		var rows []widget
		require.NoError(t, db.WithContext(ctx).Find(&rows).Error)

		assert.NotEmpty(t, sr.Ended())
		assert.NotNil(t, db.Callback().Query().Get("otel_timing:after_query"))
	})

	t.Run("defaults the slow query threshold", func(t *testing.T) {
		p := NewDBTracingPlugin(config.TelemetryConfig{}, "kontor", nil)
		assert.Equal(t, defaultSlowQueryThreshold, p.slowQuery)
		assert.False(t, p.enabled)
	})
}

func TestDBMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewDBMetrics(provider.Meter("db"), time.Hour, nil)
	require.NoError(t, err)

	db := setupTestDB(t)
	require.NoError(t, m.Register(db))
	require.NoError(t, db.Create(&widget{Name: "x"}).Error)
	var rows []widget
	require.NoError(t, db.Find(&rows).Error)

	m.collectPoolStats(context.Background())
	m.recordQuery(context.Background(), "select", "", 2*time.Hour)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			found[metric.Name] = true
		}
	}
	assert.True(t, found["db_query_total"])
	assert.True(t, found["db_query_duration_seconds"])
	assert.True(t, found["db_slow_query_total"])
	assert.True(t, found["db_pool_connections"])

	m.Stop()
	m.Stop()
}

func TestDetectOperationType(t *testing.T) {
	tests := map[string]string{
		"SELECT * FROM x":    "SELECT",
		"  insert into x":    "INSERT",
		"UPDATE x SET a=1":   "UPDATE",
		"delete from x":      "DELETE",
		"CREATE TABLE x (a)": "OTHER",
	}
	for stmt, want := range tests {
		assert.Equal(t, want, detectOperationType(stmt), stmt)
	}
}
