package logging

const (
	// FieldComponent names the package or subsystem emitting the line.
	FieldComponent = "component"
	// FieldEventType is a stable machine-readable label for the event.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDeliveryType is the delivery type (AP or PE).
	FieldDeliveryType = "delivery_type"
	// FieldDeliveryNumber is the sequential delivery number within a type.
	FieldDeliveryNumber = "delivery_number"
	// FieldDirectory is the delivery directory being processed.
	FieldDirectory = "directory"
	// FieldRunID identifies one orchestrator run in the journal.
	FieldRunID = "run_id"
)
