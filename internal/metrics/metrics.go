package metrics

import "time"

// Collector receives ledger events for export to a monitoring backend.
type Collector interface {
	// RecordTransfer is called once per Execute; outcome is "success" or an error code.
	RecordTransfer(outcome string, duration time.Duration)
	RecordSync(success bool)
	// RecordReconcile is called per orphaned transfer; action is completed, repaired, rejected or failed.
	RecordReconcile(action string)
	RecordStoreCircuitState(state string)
}

// NoOpCollector discards everything. It is the default when metrics are disabled.
type NoOpCollector struct{}

func (NoOpCollector) RecordTransfer(outcome string, duration time.Duration) {}
func (NoOpCollector) RecordSync(success bool)                               {}
func (NoOpCollector) RecordReconcile(action string)                         {}
func (NoOpCollector) RecordStoreCircuitState(state string)                  {}
