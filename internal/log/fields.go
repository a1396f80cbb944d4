package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldTable       = "table"
	FieldPosition    = "position"
	FieldAttempts    = "attempts"
	FieldPeriod      = "period"
	FieldAccount     = "account"
	FieldKind        = "kind"
	FieldCategory    = "category"
	FieldAmount      = "amount"
	FieldUser        = "user"
	FieldTransferID  = "transfer_id"
	FieldRows        = "rows"
	FieldUnparseable = "unparseable"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentPosting  = "posting"
	ComponentRegistry = "registry"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
	ComponentRetry    = "retry"
	ComponentBackend  = "backend"
	ComponentWorker   = "worker"
)

// Operations defines standard operation names
const (
	OpList     = "list"
	OpAppend   = "append"
	OpDelete   = "delete"
	OpFind     = "find"
	OpReload   = "reload"
	OpPost     = "post"
	OpTransfer = "transfer"
	OpRepair   = "repair"
	OpNotify   = "notify"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeTransient  = "transient_error"
	ErrorTypeFatal      = "fatal_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeParse      = "parse_error"
	ErrorTypeInternal   = "internal_error"
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

// WithTable adds the logical table name
func (f LogFields) WithTable(table string) LogFields {
	f[FieldTable] = table
	return f
}

// WithTransaction adds the fields identifying a posted transaction.
func (f LogFields) WithTransaction(account, kind, category, amount, user string) LogFields {
	f[FieldAccount] = account
	f[FieldKind] = kind
	f[FieldCategory] = category
	f[FieldAmount] = amount
	f[FieldUser] = user
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
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
