package pipeline

import (
	"database/sql"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// testLogger returns a silenced logger for pipeline components under test.
func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// validRecord builds a record that passes every quality predicate: a
// 150 minute delivery over 120 km with sane fuel figures and all of its
// dimensional identifiers present.
func validRecord(id int64) DeliveryRecord {
	scheduled := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	return DeliveryRecord{
		DeliveryID:     id,
		TripID:         id + 1000,
		TrackingNumber: "FLX-2025-0001",

		DateKey:          20250310,
		ScheduledTimeKey: 830,
		DeliveredTimeKey: 1100,
		VehicleID:        sql.NullInt64{Int64: 42, Valid: true},
		DriverID:         sql.NullInt64{Int64: 7, Valid: true},
		RouteID:          sql.NullInt64{Int64: 3, Valid: true},
		CustomerID:       sql.NullInt64{Int64: 501, Valid: true},

		ScheduledAt:              scheduled,
		DeliveredAt:              sql.NullTime{Time: scheduled.Add(150 * time.Minute), Valid: true},
		PackageWeightKg:          250,
		DistanceKm:               120,
		FuelConsumedLiters:       15,
		FuelEfficiencyKmPerLiter: 8,
		DelayMinutes:             sql.NullFloat64{Float64: -5, Valid: true},
		DeliveriesPerHour:        sql.NullFloat64{Float64: 2.4, Valid: true},
		RevenuePerDelivery:       45.50,
		CostPerDelivery:          20.25,
		IsDamaged:                false,
		HasSignature:             true,
		DeliveryStatus:           sql.NullString{String: StatusDelivered, Valid: true},
		TripStatus:               "completed",
	}
}

// validBatch builds n distinct valid records.
func validBatch(n int) Batch {
	batch := make(Batch, n)
	for i := range batch {
		batch[i] = validRecord(int64(i + 1))
	}
	return batch
}
