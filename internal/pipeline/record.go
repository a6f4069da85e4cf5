package pipeline

import (
	"database/sql"
	"time"
)

// Delivery status values carried by the operational store.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusDelivered  = "delivered"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// DeliveryRecord is one physical delivery event, joined with its trip,
// vehicle, driver, route and customer context by the extraction step.
// Records flow through the pipeline as values; stages return new batches
// rather than mutating their input.
type DeliveryRecord struct {
	// Identifiers
	DeliveryID     int64
	TripID         int64
	TrackingNumber string

	// Dimensional keys, computed upstream by the extractor and never
	// regenerated inside the pipeline.
	DateKey          int64
	ScheduledTimeKey int64
	DeliveredTimeKey int64
	VehicleID        sql.NullInt64
	DriverID         sql.NullInt64
	RouteID          sql.NullInt64
	CustomerID       sql.NullInt64

	// Raw measures
	ScheduledAt              time.Time
	DeliveredAt              sql.NullTime
	PackageWeightKg          float64
	DistanceKm               float64
	FuelConsumedLiters       float64
	FuelEfficiencyKmPerLiter float64
	DelayMinutes             sql.NullFloat64
	DeliveriesPerHour        sql.NullFloat64
	RevenuePerDelivery       float64
	CostPerDelivery          float64
	IsDamaged                bool
	HasSignature             bool
	DeliveryStatus           sql.NullString
	TripStatus               string

	// Derived by the metric calculator
	DurationMinutes   float64
	IsOnTime          bool
	FuelEfficiency    float64
	RevenueCalculated float64
	QualityScore      float64
}

// Batch is one extraction run's worth of delivery records, processed
// together through the pipeline.
type Batch []DeliveryRecord

// cellsPerRecord is the width of a record as the warehouse sees it, used
// as the denominator when scoring null density.
const cellsPerRecord = 24

// nullCells counts the empty cells of the record among its nullable columns.
func (r *DeliveryRecord) nullCells() int {
	n := 0
	if !r.VehicleID.Valid {
		n++
	}
	if !r.DriverID.Valid {
		n++
	}
	if !r.RouteID.Valid {
		n++
	}
	if !r.CustomerID.Valid {
		n++
	}
	if !r.DeliveredAt.Valid {
		n++
	}
	if !r.DelayMinutes.Valid {
		n++
	}
	if !r.DeliveriesPerHour.Valid {
		n++
	}
	if !r.DeliveryStatus.Valid {
		n++
	}
	return n
}

// durationMinutes returns the scheduled-to-delivered span in minutes, or
// false when the delivery timestamp is not set.
func (r *DeliveryRecord) durationMinutes() (float64, bool) {
	if !r.DeliveredAt.Valid {
		return 0, false
	}
	return r.DeliveredAt.Time.Sub(r.ScheduledAt).Minutes(), true
}
