package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestMeter(t *testing.T) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider.Meter("test"), reader
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetrics_AppliesDefaults(t *testing.T) {
	meter, _ := newTestMeter(t)

	m, err := NewDBMetrics(meter, DBMetricsConfig{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 200*time.Millisecond, m.config.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, m.config.PoolStatsInterval)
	assert.NotNil(t, m.logger)
}

func TestRecordQuery_CountsByOperation(t *testing.T) {
	meter, reader := newTestMeter(t)
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordQuery(ctx, "select", "inventory_submissions", 2*time.Millisecond)
	m.RecordQuery(ctx, "SELECT", "inventory_submissions", 3*time.Millisecond)
	m.RecordQuery(ctx, "insert", "inventory_submissions", time.Millisecond)

	data, ok := collectMetric(t, reader, "db_query_total")
	require.True(t, ok)
	sum, ok := data.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byOp := map[string]int64{}
	for _, dp := range sum.DataPoints {
		op, _ := dp.Attributes.Value(AttrDBOperation)
		byOp[op.AsString()] = dp.Value
	}
	assert.Equal(t, int64(2), byOp["SELECT"])
	assert.Equal(t, int64(1), byOp["INSERT"])
}

func TestRecordQuery_SlowQueriesLabeledByTable(t *testing.T) {
	meter, reader := newTestMeter(t)
	cfg := DefaultDBMetricsConfig()
	cfg.SlowQueryThreshold = 10 * time.Millisecond
	m, err := NewDBMetrics(meter, cfg, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordQuery(ctx, "SELECT", "monthly_totals", 30*time.Millisecond)
	m.RecordQuery(ctx, "SELECT", "monthly_totals", 2*time.Millisecond)
	m.RecordQuery(ctx, "SELECT", "", 40*time.Millisecond)

	data, ok := collectMetric(t, reader, "db_slow_query_total")
	require.True(t, ok)
	sum, ok := data.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byTable := map[string]int64{}
	for _, dp := range sum.DataPoints {
		table, _ := dp.Attributes.Value(AttrDBTable)
		byTable[table.AsString()] = dp.Value
	}
	assert.Equal(t, int64(1), byTable["monthly_totals"])
	assert.Equal(t, int64(1), byTable["unknown"])
}

func TestRecordQuery_RecordsLatencyHistogram(t *testing.T) {
	meter, reader := newTestMeter(t)
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	m.RecordQuery(context.Background(), "SELECT", "assets", 5*time.Millisecond)

	data, ok := collectMetric(t, reader, "db_query_duration_seconds")
	require.True(t, ok)
	hist, ok := data.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.005, hist.DataPoints[0].Sum, 0.001)
}

func TestSamplePoolStats(t *testing.T) {
	meter, reader := newTestMeter(t)
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	sqlDB.SetMaxOpenConns(25)
	m.SetSQLDB(sqlDB)

	m.samplePoolStats(context.Background())

	data, ok := collectMetric(t, reader, "db_pool_connections_max")
	require.True(t, ok)
	gauge, ok := data.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(25), gauge.DataPoints[0].Value)

	states, ok := collectMetric(t, reader, "db_pool_connections")
	require.True(t, ok)
	stateGauge, ok := states.Data.(metricdata.Gauge[int64])
	require.True(t, ok)

	seen := map[string]bool{}
	for _, dp := range stateGauge.DataPoints {
		state, _ := dp.Attributes.Value(AttrDBState)
		seen[state.AsString()] = true
	}
	assert.True(t, seen["idle"])
	assert.True(t, seen["in_use"])
	assert.True(t, seen["open"])
}

func TestStartPoolStatsCollection_RequiresSQLDB(t *testing.T) {
	meter, _ := newTestMeter(t)
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	// Without SetSQLDB this must not start a goroutine; Stop still returns.
	m.StartPoolStatsCollection(context.Background())
	m.Stop()
}

func TestStop_Idempotent(t *testing.T) {
	meter, _ := newTestMeter(t)
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	m.SetSQLDB(sqlDB)
	m.StartPoolStatsCollection(context.Background())

	m.Stop()
	m.Stop()
}

func TestDBMetricsPlugin_RecordsGormQueries(t *testing.T) {
	meter, reader := newTestMeter(t)
	m, err := NewDBMetrics(meter, DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	db := openInventoryDB(t)
	require.NoError(t, db.Use(NewDBMetricsPlugin(m, zap.NewNop())))

	require.NoError(t, db.Create(&trackedAsset{TenantID: "warehouse-north", Name: "pallet jack", Quantity: 7}).Error)
	var assets []trackedAsset
	require.NoError(t, db.Find(&assets).Error)
	require.NoError(t, db.Exec("UPDATE tracked_assets SET quantity = 8 WHERE name = ?", "pallet jack").Error)

	data, ok := collectMetric(t, reader, "db_query_total")
	require.True(t, ok)
	sum, ok := data.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byOp := map[string]int64{}
	for _, dp := range sum.DataPoints {
		op, _ := dp.Attributes.Value(AttrDBOperation)
		byOp[op.AsString()] += dp.Value
	}
	assert.GreaterOrEqual(t, byOp["INSERT"], int64(1))
	assert.GreaterOrEqual(t, byOp["SELECT"], int64(1))
	assert.GreaterOrEqual(t, byOp["UPDATE"], int64(1))
}

func TestSQLVerb(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT quantity FROM assets", "SELECT"},
		{"  select * from inventory_submissions", "SELECT"},
		{"INSERT INTO assets (name) VALUES (?)", "INSERT"},
		{"update assets set quantity = 1", "UPDATE"},
		{"DELETE FROM form_fields", "DELETE"},
		{"PRAGMA table_info(assets)", "OTHER"},
		{"", "OTHER"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sqlVerb(tt.sql), tt.sql)
	}
}

func TestRegisterDBMetrics_DisabledOrNoProvider(t *testing.T) {
	db := openInventoryDB(t)

	cfg := DefaultDBMetricsConfig()
	cfg.Enabled = false
	m, err := RegisterDBMetrics(db, nil, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, m)

	cfg.Enabled = true
	m, err = RegisterDBMetrics(db, nil, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, m)
}
