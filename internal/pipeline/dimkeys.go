package pipeline

import (
	"github.com/sirupsen/logrus"
)

// KeyStats summarizes one dimensional key column across a batch.
type KeyStats struct {
	Name     string
	Present  int
	Distinct int
	Min      int64
	Max      int64
}

// KeyVerifier audits the dimensional key columns that arrive already
// computed on each record. It never mutates or drops rows; the warehouse
// keys are produced upstream and verification is observational.
type KeyVerifier struct {
	log logrus.FieldLogger
}

func NewKeyVerifier(log logrus.FieldLogger) *KeyVerifier {
	return &KeyVerifier{log: log.WithField("component", "dimkeys")}
}

// keyExtractor returns the column value and whether it is present on the
// record. Date and time keys are derived integers where zero means the
// source timestamp was null; identifier columns are nullable directly.
type keyExtractor struct {
	name    string
	extract func(*DeliveryRecord) (int64, bool)
}

var keyColumns = []keyExtractor{
	{"date_key", func(r *DeliveryRecord) (int64, bool) { return r.DateKey, r.DateKey != 0 }},
	{"scheduled_time_key", func(r *DeliveryRecord) (int64, bool) { return r.ScheduledTimeKey, r.ScheduledTimeKey != 0 }},
	{"delivered_time_key", func(r *DeliveryRecord) (int64, bool) { return r.DeliveredTimeKey, r.DeliveredTimeKey != 0 }},
	{"vehicle_id", func(r *DeliveryRecord) (int64, bool) { return r.VehicleID.Int64, r.VehicleID.Valid }},
	{"driver_id", func(r *DeliveryRecord) (int64, bool) { return r.DriverID.Int64, r.DriverID.Valid }},
	{"route_id", func(r *DeliveryRecord) (int64, bool) { return r.RouteID.Int64, r.RouteID.Valid }},
	{"customer_id", func(r *DeliveryRecord) (int64, bool) { return r.CustomerID.Int64, r.CustomerID.Valid }},
}

// Verify reports per-key coverage statistics for the batch and returns the
// batch unchanged. Keys that are absent from every row are logged as
// warnings so a broken upstream join surfaces before the warehouse load.
func (v *KeyVerifier) Verify(batch Batch) ([]KeyStats, Batch) {
	stats := make([]KeyStats, 0, len(keyColumns))

	for _, kc := range keyColumns {
		s := KeyStats{Name: kc.name}
		seen := make(map[int64]struct{})
		for i := range batch {
			val, ok := kc.extract(&batch[i])
			if !ok {
				continue
			}
			if s.Present == 0 || val < s.Min {
				s.Min = val
			}
			if s.Present == 0 || val > s.Max {
				s.Max = val
			}
			s.Present++
			seen[val] = struct{}{}
		}
		s.Distinct = len(seen)
		stats = append(stats, s)

		if len(batch) > 0 && s.Present == 0 {
			v.log.WithField("key", s.Name).Warn("Dimensional key missing from every row")
		} else {
			v.log.WithFields(logrus.Fields{
				"key":      s.Name,
				"present":  s.Present,
				"distinct": s.Distinct,
			}).Debug("Dimensional key verified")
		}
	}

	return stats, batch
}
