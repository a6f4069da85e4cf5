package pipeline

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyReportsSevenKeys(t *testing.T) {
	v := NewKeyVerifier(testLogger())

	stats, out := v.Verify(validBatch(3))

	require.Len(t, stats, 7)
	names := make([]string, len(stats))
	for i, s := range stats {
		names[i] = s.Name
	}
	assert.Equal(t, []string{
		"date_key", "scheduled_time_key", "delivered_time_key",
		"vehicle_id", "driver_id", "route_id", "customer_id",
	}, names)
	assert.Len(t, out, 3)
}

func TestVerifyCoverageStats(t *testing.T) {
	v := NewKeyVerifier(testLogger())

	batch := validBatch(4)
	batch[0].VehicleID = sql.NullInt64{Int64: 10, Valid: true}
	batch[1].VehicleID = sql.NullInt64{Int64: 20, Valid: true}
	batch[2].VehicleID = sql.NullInt64{Int64: 20, Valid: true}
	batch[3].VehicleID = sql.NullInt64{}

	stats, _ := v.Verify(batch)

	var vehicle KeyStats
	for _, s := range stats {
		if s.Name == "vehicle_id" {
			vehicle = s
		}
	}
	assert.Equal(t, 3, vehicle.Present)
	assert.Equal(t, 2, vehicle.Distinct)
	assert.Equal(t, int64(10), vehicle.Min)
	assert.Equal(t, int64(20), vehicle.Max)
}

func TestVerifyDerivedKeyZeroMeansAbsent(t *testing.T) {
	v := NewKeyVerifier(testLogger())

	batch := validBatch(2)
	batch[1].DeliveredTimeKey = 0 // null source timestamp

	stats, _ := v.Verify(batch)

	for _, s := range stats {
		if s.Name == "delivered_time_key" {
			assert.Equal(t, 1, s.Present)
		}
	}
}

func TestVerifyNeverDropsRows(t *testing.T) {
	v := NewKeyVerifier(testLogger())

	batch := validBatch(3)
	for i := range batch {
		batch[i].CustomerID = sql.NullInt64{}
		batch[i].DateKey = 0
	}

	stats, out := v.Verify(batch)

	assert.Len(t, out, 3)
	for _, s := range stats {
		if s.Name == "customer_id" || s.Name == "date_key" {
			assert.Zero(t, s.Present)
			assert.Zero(t, s.Distinct)
		}
	}
}

func TestVerifyEmptyBatch(t *testing.T) {
	v := NewKeyVerifier(testLogger())

	stats, out := v.Verify(Batch{})
	assert.Len(t, stats, 7)
	assert.Empty(t, out)
}
