package pipeline

import (
	"github.com/sirupsen/logrus"
)

// Domain bounds for a plausible delivery row. Rows outside these are
// dropped before they can reach the warehouse.
const (
	maxDurationMinutes = 1440 // 24 hours
	maxDistanceKm      = 5000
	maxWeightKg        = 10000
	maxFuelEfficiency  = 50 // km per liter
)

// Validator applies row-level quality predicates to extracted records.
// Rows failing a predicate are dropped and counted, never raised as errors;
// an empty result is a normal outcome the orchestrator reacts to.
type Validator struct {
	log logrus.FieldLogger
}

func NewValidator(log logrus.FieldLogger) *Validator {
	return &Validator{log: log.WithField("component", "validator")}
}

// Apply returns the subset of rows passing every quality predicate.
func (v *Validator) Apply(batch Batch) Batch {
	if len(batch) == 0 {
		return batch
	}

	clean := make(Batch, 0, len(batch))
	for i := range batch {
		if v.valid(&batch[i]) {
			clean = append(clean, batch[i])
		}
	}

	removed := len(batch) - len(clean)
	if removed > 0 {
		v.log.WithFields(logrus.Fields{
			"removed": removed,
			"kept":    len(clean),
			"percent": float64(removed) / float64(len(batch)) * 100,
		}).Info("Rows removed by quality validation")
	} else {
		v.log.WithField("rows", len(clean)).Info("All rows passed validation")
	}

	return clean
}

func (v *Validator) valid(r *DeliveryRecord) bool {
	duration, ok := r.durationMinutes()
	if !ok {
		return false
	}
	if duration <= 0 || duration >= maxDurationMinutes {
		return false
	}
	if r.DistanceKm <= 0 || r.DistanceKm >= maxDistanceKm {
		return false
	}
	if r.PackageWeightKg < 0 || r.PackageWeightKg >= maxWeightKg {
		return false
	}
	if r.FuelEfficiencyKmPerLiter <= 0 || r.FuelEfficiencyKmPerLiter >= maxFuelEfficiency {
		return false
	}
	if r.DeliveredAt.Time.Before(r.ScheduledAt) {
		return false
	}
	if !r.DeliveryStatus.Valid || !r.VehicleID.Valid || !r.DriverID.Valid {
		return false
	}
	return true
}
