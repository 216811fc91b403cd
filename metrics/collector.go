// Package metrics counts client-side request outcomes for one process.
//
// The Collector is a leaf package with no internal dependencies. It is
// nil-receiver safe so library code can record unconditionally.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Finalize
	FinalizeSucceeded  int64 `json:"finalize_succeeded" yaml:"finalize_succeeded"`
	FinalizeSoftFailed int64 `json:"finalize_soft_failed" yaml:"finalize_soft_failed"`
	FinalizeHardFailed int64 `json:"finalize_hard_failed" yaml:"finalize_hard_failed"`
	Batches            int64 `json:"batches" yaml:"batches"`

	// Consolidated export
	Previews        int64 `json:"previews" yaml:"previews"`
	PreviewFailures int64 `json:"preview_failures" yaml:"preview_failures"`
	Exports         int64 `json:"exports" yaml:"exports"`
	ExportFailures  int64 `json:"export_failures" yaml:"export_failures"`

	// Delivery
	DeliveriesSaved    int64 `json:"deliveries_saved" yaml:"deliveries_saved"`
	DeliveriesBuffered int64 `json:"deliveries_buffered" yaml:"deliveries_buffered"`
	DeliveryFailures   int64 `json:"delivery_failures" yaml:"delivery_failures"`

	// Dimensions
	TransportMode string `json:"transport_mode" yaml:"transport_mode"`
}

// Collector accumulates counters. Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	finalizeSucceeded  int64
	finalizeSoftFailed int64
	finalizeHardFailed int64
	batches            int64

	previews        int64
	previewFailures int64
	exports         int64
	exportFailures  int64

	deliveriesSaved    int64
	deliveriesBuffered int64
	deliveryFailures   int64

	transportMode string
}

// NewCollector creates a Collector labelled with the process transport mode.
func NewCollector(transportMode string) *Collector {
	return &Collector{transportMode: transportMode}
}

// SetTransportMode relabels the collector once the delivery mode is known.
func (c *Collector) SetTransportMode(mode string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.transportMode = mode
	c.mu.Unlock()
}

func (c *Collector) add(counter *int64) {
	c.mu.Lock()
	*counter++
	c.mu.Unlock()
}

// --- Finalize ---

// IncFinalizeSucceeded records a finalize call that returned success.
func (c *Collector) IncFinalizeSucceeded() {
	if c == nil {
		return
	}
	c.add(&c.finalizeSucceeded)
}

// IncFinalizeSoftFailed records a 2xx finalize response with success=false.
func (c *Collector) IncFinalizeSoftFailed() {
	if c == nil {
		return
	}
	c.add(&c.finalizeSoftFailed)
}

// IncFinalizeHardFailed records a non-2xx or transport-level finalize failure.
func (c *Collector) IncFinalizeHardFailed() {
	if c == nil {
		return
	}
	c.add(&c.finalizeHardFailed)
}

// IncBatches records a completed batch.
func (c *Collector) IncBatches() {
	if c == nil {
		return
	}
	c.add(&c.batches)
}

// --- Consolidated export ---

// IncPreviews records a successful preview.
func (c *Collector) IncPreviews() {
	if c == nil {
		return
	}
	c.add(&c.previews)
}

// IncPreviewFailures records a failed preview.
func (c *Collector) IncPreviewFailures() {
	if c == nil {
		return
	}
	c.add(&c.previewFailures)
}

// IncExports records a successful export.
func (c *Collector) IncExports() {
	if c == nil {
		return
	}
	c.add(&c.exports)
}

// IncExportFailures records a failed export.
func (c *Collector) IncExportFailures() {
	if c == nil {
		return
	}
	c.add(&c.exportFailures)
}

// --- Delivery ---

// IncDeliverySaved records a payload saved by the interactive mode.
func (c *Collector) IncDeliverySaved() {
	if c == nil {
		return
	}
	c.add(&c.deliveriesSaved)
}

// IncDeliveryBuffered records a payload returned by the buffered mode.
func (c *Collector) IncDeliveryBuffered() {
	if c == nil {
		return
	}
	c.add(&c.deliveriesBuffered)
}

// IncDeliveryFailure records a save that failed.
func (c *Collector) IncDeliveryFailure() {
	if c == nil {
		return
	}
	c.add(&c.deliveryFailures)
}

// Snapshot returns a copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		FinalizeSucceeded:  c.finalizeSucceeded,
		FinalizeSoftFailed: c.finalizeSoftFailed,
		FinalizeHardFailed: c.finalizeHardFailed,
		Batches:            c.batches,

		Previews:        c.previews,
		PreviewFailures: c.previewFailures,
		Exports:         c.exports,
		ExportFailures:  c.exportFailures,

		DeliveriesSaved:    c.deliveriesSaved,
		DeliveriesBuffered: c.deliveriesBuffered,
		DeliveryFailures:   c.deliveryFailures,

		TransportMode: c.transportMode,
	}
}

// Fields returns the snapshot as log fields.
func (s Snapshot) Fields() map[string]any {
	return map[string]any{
		"finalize_succeeded":   s.FinalizeSucceeded,
		"finalize_soft_failed": s.FinalizeSoftFailed,
		"finalize_hard_failed": s.FinalizeHardFailed,
		"batches":              s.Batches,
		"previews":             s.Previews,
		"preview_failures":     s.PreviewFailures,
		"exports":              s.Exports,
		"export_failures":      s.ExportFailures,
		"deliveries_saved":     s.DeliveriesSaved,
		"deliveries_buffered":  s.DeliveriesBuffered,
		"delivery_failures":    s.DeliveryFailures,
		"transport_mode":       s.TransportMode,
	}
}
