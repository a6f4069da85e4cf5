package pipeline

import (
	"database/sql"
	"math"

	"github.com/sirupsen/logrus"

	"fleetlogix/internal/warehouse"
	apperrors "fleetlogix/pkg/errors"
)

// accessor pulls one warehouse column value out of a record. Nullable
// source columns come back as nil so the driver writes SQL NULL.
type accessor func(*DeliveryRecord) interface{}

// recordAccessors maps warehouse column names to the record fields that
// feed them. A schema column with no accessor is reported and skipped
// rather than failing the batch. Fuel efficiency and revenue persist the
// upstream figures; the recomputed variants stay in-memory for scoring.
var recordAccessors = map[string]accessor{
	"DELIVERY_ID":                  func(r *DeliveryRecord) interface{} { return r.DeliveryID },
	"TRIP_ID":                      func(r *DeliveryRecord) interface{} { return r.TripID },
	"TRACKING_NUMBER":              func(r *DeliveryRecord) interface{} { return r.TrackingNumber },
	"DATE_KEY":                     func(r *DeliveryRecord) interface{} { return r.DateKey },
	"SCHEDULED_TIME_KEY":           func(r *DeliveryRecord) interface{} { return r.ScheduledTimeKey },
	"DELIVERED_TIME_KEY":           func(r *DeliveryRecord) interface{} { return r.DeliveredTimeKey },
	"VEHICLE_ID":                   func(r *DeliveryRecord) interface{} { return nullInt(r.VehicleID) },
	"DRIVER_ID":                    func(r *DeliveryRecord) interface{} { return nullInt(r.DriverID) },
	"ROUTE_ID":                     func(r *DeliveryRecord) interface{} { return nullInt(r.RouteID) },
	"CUSTOMER_ID":                  func(r *DeliveryRecord) interface{} { return nullInt(r.CustomerID) },
	"DELIVERY_STATUS":              func(r *DeliveryRecord) interface{} { return nullString(r.DeliveryStatus) },
	"TRIP_STATUS":                  func(r *DeliveryRecord) interface{} { return r.TripStatus },
	"PACKAGE_WEIGHT_KG":            func(r *DeliveryRecord) interface{} { return r.PackageWeightKg },
	"DISTANCE_KM":                  func(r *DeliveryRecord) interface{} { return r.DistanceKm },
	"DURATION_MINUTES":             func(r *DeliveryRecord) interface{} { return r.DurationMinutes },
	"FUEL_CONSUMED_LITERS":         func(r *DeliveryRecord) interface{} { return r.FuelConsumedLiters },
	"FUEL_EFFICIENCY_KM_PER_LITER": func(r *DeliveryRecord) interface{} { return r.FuelEfficiencyKmPerLiter },
	"DELAY_MINUTES":                func(r *DeliveryRecord) interface{} { return nullFloat(r.DelayMinutes) },
	"IS_ON_TIME":                   func(r *DeliveryRecord) interface{} { return r.IsOnTime },
	"IS_DAMAGED":                   func(r *DeliveryRecord) interface{} { return r.IsDamaged },
	"HAS_SIGNATURE":                func(r *DeliveryRecord) interface{} { return r.HasSignature },
	"REVENUE_PER_DELIVERY":         func(r *DeliveryRecord) interface{} { return r.RevenuePerDelivery },
	"COST_PER_DELIVERY":            func(r *DeliveryRecord) interface{} { return r.CostPerDelivery },
	"DELIVERIES_PER_HOUR":          func(r *DeliveryRecord) interface{} { return nullFloat(r.DeliveriesPerHour) },
	"DATA_QUALITY_SCORE":           func(r *DeliveryRecord) interface{} { return r.QualityScore },
}

// Projector narrows enriched records down to the warehouse table shape.
type Projector struct {
	schema warehouse.TableSchema
	log    logrus.FieldLogger
}

func NewProjector(schema warehouse.TableSchema, log logrus.FieldLogger) *Projector {
	return &Projector{
		schema: schema,
		log:    log.WithField("component", "projector"),
	}
}

// Project converts the batch into warehouse rows ordered by the resolved
// schema. Schema columns the records cannot populate are dropped with a
// mismatch warning; a batch that resolves zero columns is an error because
// a load of empty rows would silently truncate the fact table's content.
func (p *Projector) Project(batch Batch) (warehouse.TableSchema, []warehouse.Row, error) {
	resolved := warehouse.TableSchema{
		Table:     p.schema.Table,
		KeyColumn: p.schema.KeyColumn,
	}
	var missing []string
	var getters []accessor
	var round []bool

	for _, col := range p.schema.Columns {
		get, ok := recordAccessors[col.Name]
		if !ok {
			missing = append(missing, col.Name)
			continue
		}
		resolved.Columns = append(resolved.Columns, col)
		getters = append(getters, get)
		round = append(round, !col.Identifier)
	}

	if len(missing) > 0 {
		mismatch := apperrors.SchemaMismatch(p.schema.Table, missing)
		p.log.WithFields(logrus.Fields{
			"table":   p.schema.Table,
			"missing": missing,
		}).Warn(mismatch.Message)
	}
	if len(resolved.Columns) == 0 {
		return resolved, nil, apperrors.New(apperrors.ErrCodeSchemaMismatch,
			"no record field maps onto any column of "+p.schema.Table)
	}

	rows := make([]warehouse.Row, len(batch))
	for i := range batch {
		row := make(warehouse.Row, len(getters))
		for j, get := range getters {
			v := get(&batch[i])
			if f, ok := v.(float64); ok && round[j] {
				v = roundMetric(f)
			}
			row[j] = v
		}
		rows[i] = row
	}

	p.log.WithFields(logrus.Fields{
		"rows":    len(rows),
		"columns": len(resolved.Columns),
	}).Info("Batch projected to warehouse shape")

	return resolved, rows, nil
}

// roundMetric keeps measure columns at two decimal places so repeated runs
// of the same batch produce byte-identical warehouse values.
func roundMetric(v float64) float64 {
	return math.Round(v*100) / 100
}

func nullInt(v sql.NullInt64) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func nullFloat(v sql.NullFloat64) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func nullString(v sql.NullString) interface{} {
	if !v.Valid {
		return nil
	}
	return v.String
}
