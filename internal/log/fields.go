package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldPeriod        = "period"
	FieldRuleID        = "rule_id"
	FieldRuleTitle     = "rule_title"
	FieldTransactionID = "transaction_id"
	FieldAmountCents   = "amount_cents"
	FieldDirection     = "direction"
	FieldFrequency     = "frequency"
	FieldPostedDate    = "posted_date"
	FieldCategory      = "category"
	FieldLedgerID      = "ledger_id"
	FieldStreakDays    = "streak_days"
	FieldAlertLevel    = "alert_level"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentRecurring = "recurring"
	ComponentReport    = "report"
	ComponentBudget    = "budget"
	ComponentBackup    = "backup"
	ComponentCache     = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpAdvance  = "advance"
	OpExport   = "export"
	OpImport   = "import"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder for structured log fields
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

// WithRule adds recurring-rule fields
func (f LogFields) WithRule(id int64, title string, frequency string) LogFields {
	f[FieldRuleID] = id
	f[FieldRuleTitle] = title
	f[FieldFrequency] = frequency
	return f
}

// WithPosting adds generated-posting fields
func (f LogFields) WithPosting(ruleID int64, postedDate string, amountCents int64, direction string) LogFields {
	f[FieldRuleID] = ruleID
	f[FieldPostedDate] = postedDate
	f[FieldAmountCents] = amountCents
	f[FieldDirection] = direction
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
