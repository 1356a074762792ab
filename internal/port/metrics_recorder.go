package port

// MetricsRecorder receives engine outcomes for instrumentation.
type MetricsRecorder interface {
	PromotionOutcome(outcome string)
	InventoryApplied(action string, quantity int)
	InventoryRestored(action string, quantity int)
	ReminderDispatched(days int)
}
