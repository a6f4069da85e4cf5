package pipeline

import (
	"github.com/sirupsen/logrus"
)

// Quality score deductions. Each term deducts proportionally to the
// fraction of offending cells or rows, up to its weight.
const (
	nullPenaltyWeight       = 50
	efficiencyPenaltyWeight = 20
	durationPenaltyWeight   = 15
	delayPenaltyWeight      = 10

	goodEfficiencyMin = 5
	goodEfficiencyMax = 30
	goodDurationMin   = 30
	goodDurationMax   = 600
	extremeDelayMin   = 240 // minutes
)

// MetricCalculator derives the computed fields of each record and the
// batch-level data quality score.
type MetricCalculator struct {
	log logrus.FieldLogger
}

func NewMetricCalculator(log logrus.FieldLogger) *MetricCalculator {
	return &MetricCalculator{log: log.WithField("component", "metrics")}
}

// Enrich computes the derived fields for every row and broadcasts the
// batch quality score onto each of them. The score is a batch-level
// statistic: every row of one batch carries the identical value, and
// downstream consumers aggregate on that assumption.
func (c *MetricCalculator) Enrich(batch Batch) Batch {
	if len(batch) == 0 {
		return batch
	}

	out := make(Batch, len(batch))
	copy(out, batch)

	for i := range out {
		r := &out[i]

		if duration, ok := r.durationMinutes(); ok {
			r.DurationMinutes = duration
		}

		// The upstream delay_minutes column is the single source of truth
		// for punctuality; a row without it is not on time.
		r.IsOnTime = r.DelayMinutes.Valid && r.DelayMinutes.Float64 <= 0

		if r.FuelConsumedLiters > 0 {
			r.FuelEfficiency = r.DistanceKm / r.FuelConsumedLiters
		} else {
			r.FuelEfficiency = 0
		}

		if r.DeliveryStatus.Valid && r.DeliveryStatus.String == StatusDelivered {
			r.RevenueCalculated = r.RevenuePerDelivery
		} else {
			r.RevenueCalculated = 0
		}
	}

	score := qualityScore(out)
	for i := range out {
		out[i].QualityScore = score
	}

	c.log.WithFields(logrus.Fields{
		"rows":          len(out),
		"quality_score": score,
	}).Info("Batch metrics computed")

	return out
}

// qualityScore rates a batch from 0 to 100.
func qualityScore(batch Batch) float64 {
	if len(batch) == 0 {
		return 0
	}

	score := 100.0
	rows := float64(len(batch))

	nulls := 0
	badEfficiency := 0
	badDuration := 0
	extremeDelay := 0

	for i := range batch {
		r := &batch[i]
		nulls += r.nullCells()
		if r.FuelEfficiencyKmPerLiter < goodEfficiencyMin || r.FuelEfficiencyKmPerLiter > goodEfficiencyMax {
			badEfficiency++
		}
		if r.DurationMinutes < goodDurationMin || r.DurationMinutes > goodDurationMax {
			badDuration++
		}
		if r.DelayMinutes.Valid && r.DelayMinutes.Float64 > extremeDelayMin {
			extremeDelay++
		}
	}

	score -= float64(nulls) / (rows * cellsPerRecord) * nullPenaltyWeight
	score -= float64(badEfficiency) / rows * efficiencyPenaltyWeight
	score -= float64(badDuration) / rows * durationPenaltyWeight
	score -= float64(extremeDelay) / rows * delayPenaltyWeight

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
