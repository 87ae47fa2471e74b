package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType tags log lines with a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step when something went wrong.
	FieldErrorHint = "error_hint"
	// FieldImage is the screenshot file name a log line refers to.
	FieldImage = "image"
	// FieldResult is an outcome label (win/lose/disconnect).
	FieldResult = "result"
	// FieldSessionID identifies one recording session.
	FieldSessionID = "session_id"
	// FieldMethod names the gateway request variant that served a call.
	FieldMethod = "method"
)
