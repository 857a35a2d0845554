package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldMonth       = "month"
	FieldYear        = "year"
	FieldPeriod      = "period"
	FieldTxID        = "transaction_id"
	FieldTxDesc      = "transaction_description"
	FieldGoalID      = "goal_id"
	FieldGoalType    = "goal_type"
	FieldAmountCents = "amount_cents"
	FieldCategory    = "category"
	FieldStorageKey  = "storage_key"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentGoal      = "goal"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentRecurring = "recurring"
	ComponentCache     = "cache"
)

// Operations defines standard operation names
const (
	OpLoad     = "load"
	OpAdd      = "add"
	OpUpdate   = "update"
	OpRemove   = "remove"
	OpQuery    = "query"
	OpPersist  = "persist"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpExport   = "export"
	OpValidate = "validate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder for structured log fields.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithPeriod(month, year int) LogFields {
	f[FieldMonth] = month
	f[FieldYear] = year
	return f
}

func (f LogFields) WithHTTPRequest(method, path, clientIP string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldClientIP] = clientIP
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

func (f LogFields) WithTransaction(id, desc string, amountCents int64) LogFields {
	f[FieldTxID] = id
	f[FieldTxDesc] = desc
	f[FieldAmountCents] = amountCents
	return f
}

// ToSlice converts LogFields to the alternating key-value slice slog expects.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
