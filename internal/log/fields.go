package log

// Common field names for structured logging
const (
	FieldComponent      = "component"
	FieldRequestID      = "request_id"
	FieldClientIP       = "client_ip"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldStatusCode     = "status_code"
	FieldDuration       = "duration_ms"
	FieldError          = "error"
	FieldOperation      = "operation"
	FieldCategoryID     = "category_id"
	FieldTransactionID  = "transaction_id"
	FieldRequested      = "requested"
	FieldUpdated        = "updated"
	FieldSkipped        = "skipped"
	FieldVersion        = "version"
	FieldReason         = "reason"
	FieldAmountCents    = "amount_cents"
	FieldBackend        = "backend"
	FieldSubscriberID   = "subscriber_id"
	FieldSignature      = "signature"
	FieldTransactionCnt = "transaction_count"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentCategorize = "categorize"
	ComponentCategory   = "category"
	ComponentBudget     = "budget"
	ComponentNotify     = "notify"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentSeed       = "seed"
	ComponentBackend    = "backend"
	ComponentRateLimit  = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpUpdate     = "update"
	OpList       = "list"
	OpCategorize = "categorize"
	OpUndo       = "undo"
	OpIgnore     = "ignore"
	OpSave       = "save"
	OpFetch      = "fetch"
	OpRecompute  = "recompute"
	OpPublish    = "publish"
	OpExport     = "export"
	OpSeed       = "seed"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCategorization adds the fields describing a categorize/undo batch.
func (f LogFields) WithCategorization(categoryID string, requested, updated int) LogFields {
	if categoryID != "" {
		f[FieldCategoryID] = categoryID
	}
	f[FieldRequested] = requested
	f[FieldUpdated] = updated
	f[FieldSkipped] = requested - updated
	return f
}

// WithVersion adds the notifier version.
func (f LogFields) WithVersion(version uint64) LogFields {
	f[FieldVersion] = version
	return f
}

// WithHTTP adds request/response fields.
func (f LogFields) WithHTTP(method, path string, statusCode int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
