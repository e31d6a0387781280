package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldImportID      = "import_id"
	FieldFilename      = "filename"
	FieldFormat        = "format"
	FieldTransactionID = "transaction_id"
	FieldCategoryID    = "category_id"
	FieldRuleID        = "rule_id"
	FieldAmountCents   = "amount_cents"
	FieldCount         = "count"
	FieldSheetRef      = "sheet_ref"
)

// Components defines standard component names
const (
	ComponentApp            = "app"
	ComponentHTTP           = "http"
	ComponentImport         = "import"
	ComponentCategorization = "categorization"
	ComponentSplit          = "split"
	ComponentStats          = "stats"
	ComponentStorage        = "storage"
	ComponentAMQP           = "amqp"
	ComponentWorker         = "worker"
	ComponentSheets         = "sheets"
	ComponentCache          = "cache"
	ComponentSecurity       = "security"
	ComponentRateLimit      = "rate_limit"
	ComponentTrace          = "trace"
	ComponentCLI            = "cli"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpImport   = "import"
	OpApply    = "apply"
	OpSplit    = "split"
	OpExport   = "export"
	OpValidate = "validate"
	OpParse    = "parse"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message and, when given, its category.
func (f LogFields) WithError(err error, errorType string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		if errorType != "" {
			f[FieldErrorType] = errorType
		}
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithImport adds the summary fields of a finished import.
func (f LogFields) WithImport(id int64, filename, format string, newRows, duplicates, errors int) LogFields {
	f[FieldImportID] = id
	f[FieldFilename] = filename
	f[FieldFormat] = format
	f["transactions_new"] = newRows
	f["transactions_duplicate"] = duplicates
	f["transactions_error"] = errors
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
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
