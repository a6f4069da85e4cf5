package pipeline

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichDerivedFields(t *testing.T) {
	c := NewMetricCalculator(testLogger())

	out := c.Enrich(validBatch(1))
	require.Len(t, out, 1)
	r := out[0]

	assert.InDelta(t, 150.0, r.DurationMinutes, 0.001)
	assert.True(t, r.IsOnTime)
	assert.InDelta(t, 8.0, r.FuelEfficiency, 0.001) // 120 km / 15 l
	assert.InDelta(t, 45.50, r.RevenueCalculated, 0.001)
	assert.InDelta(t, 100.0, r.QualityScore, 0.001)
}

func TestEnrichOnTimeFromDelay(t *testing.T) {
	tests := []struct {
		name   string
		delay  sql.NullFloat64
		onTime bool
	}{
		{"early", sql.NullFloat64{Float64: -12, Valid: true}, true},
		{"exactly on schedule", sql.NullFloat64{Float64: 0, Valid: true}, true},
		{"late", sql.NullFloat64{Float64: 1, Valid: true}, false},
		{"unknown delay", sql.NullFloat64{}, false},
	}

	c := NewMetricCalculator(testLogger())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := validBatch(1)
			batch[0].DelayMinutes = tt.delay

			out := c.Enrich(batch)
			assert.Equal(t, tt.onTime, out[0].IsOnTime)
		})
	}
}

func TestEnrichFuelEfficiencyZeroConsumption(t *testing.T) {
	c := NewMetricCalculator(testLogger())

	batch := validBatch(1)
	batch[0].FuelConsumedLiters = 0

	out := c.Enrich(batch)
	assert.Zero(t, out[0].FuelEfficiency)
}

func TestEnrichRevenueOnlyWhenDelivered(t *testing.T) {
	c := NewMetricCalculator(testLogger())

	batch := validBatch(2)
	batch[1].DeliveryStatus = sql.NullString{String: StatusFailed, Valid: true}

	out := c.Enrich(batch)
	assert.InDelta(t, 45.50, out[0].RevenueCalculated, 0.001)
	assert.Zero(t, out[1].RevenueCalculated)
}

func TestQualityScoreBroadcastIdentically(t *testing.T) {
	c := NewMetricCalculator(testLogger())

	batch := validBatch(6)
	batch[2].FuelEfficiencyKmPerLiter = 55 // one offender lowers the whole batch

	out := c.Enrich(batch)
	require.Len(t, out, 6)
	for _, r := range out {
		assert.Equal(t, out[0].QualityScore, r.QualityScore)
	}
	assert.Less(t, out[0].QualityScore, 100.0)
}

func TestQualityScoreDeductions(t *testing.T) {
	c := NewMetricCalculator(testLogger())

	// One of four rows has fuel efficiency out of range: 100 - 20/4 = 95.
	batch := validBatch(4)
	batch[0].FuelEfficiencyKmPerLiter = 3

	out := c.Enrich(batch)
	assert.InDelta(t, 95.0, out[0].QualityScore, 0.001)
}

func TestQualityScoreNullPenalty(t *testing.T) {
	c := NewMetricCalculator(testLogger())

	// Two null cells across 2 rows of 24 cells: 100 - 50*2/48.
	batch := validBatch(2)
	batch[1].DelayMinutes = sql.NullFloat64{}
	batch[1].DeliveriesPerHour = sql.NullFloat64{}

	out := c.Enrich(batch)
	assert.InDelta(t, 100.0-50.0*2.0/48.0, out[0].QualityScore, 0.001)
}

func TestQualityScoreExtremeDelayPenalty(t *testing.T) {
	c := NewMetricCalculator(testLogger())

	// One of two rows over four hours late: 100 - 10/2 = 95.
	batch := validBatch(2)
	batch[1].DelayMinutes = sql.NullFloat64{Float64: 300, Valid: true}

	out := c.Enrich(batch)
	assert.InDelta(t, 95.0, out[0].QualityScore, 0.001)
}

func TestQualityScoreClampedAtZero(t *testing.T) {
	c := NewMetricCalculator(testLogger())

	// Every deduction triggered at once still yields a score in range.
	batch := make(Batch, 2)
	for i := range batch {
		r := validRecord(int64(i + 1))
		r.VehicleID = sql.NullInt64{}
		r.DriverID = sql.NullInt64{}
		r.RouteID = sql.NullInt64{}
		r.CustomerID = sql.NullInt64{}
		r.DeliveredAt = sql.NullTime{}
		r.DeliveriesPerHour = sql.NullFloat64{}
		r.DeliveryStatus = sql.NullString{}
		r.FuelEfficiencyKmPerLiter = 90
		r.DelayMinutes = sql.NullFloat64{Float64: 500, Valid: true}
		batch[i] = r
	}

	out := c.Enrich(batch)
	assert.GreaterOrEqual(t, out[0].QualityScore, 0.0)
	assert.LessOrEqual(t, out[0].QualityScore, 100.0)
}

func TestEnrichEmptyBatch(t *testing.T) {
	c := NewMetricCalculator(testLogger())
	assert.Empty(t, c.Enrich(Batch{}))
}
