package log

import "fintrack/internal/core"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldRuleID        = "rule_id"
	FieldFrequency     = "frequency"
	FieldDate          = "date"
	FieldTransactionID = "transaction_id"
	FieldFromCurrency  = "from_currency"
	FieldToCurrency    = "to_currency"
	FieldAmount        = "amount"
	FieldMode          = "mode"
	FieldCreated       = "created"
	FieldCategory      = "category"
	FieldGoalID        = "goal_id"
)

// Components
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentRecurring = "recurring"
	ComponentCurrency  = "currency"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentScheduler = "scheduler"
	ComponentCache     = "cache"
	ComponentPlanning  = "planning"
)

// Operations
const (
	OpGenerate = "generate"
	OpPublish  = "publish"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds the error text; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithRule adds the identifying fields of a recurring rule.
func (f LogFields) WithRule(rule core.RecurringRule) LogFields {
	f[FieldRuleID] = rule.ID
	f[FieldFrequency] = string(rule.Frequency)
	return f
}

// WithConversion adds the currency pair and amount of a conversion.
func (f LogFields) WithConversion(amount string, from, to core.CurrencyCode) LogFields {
	f[FieldAmount] = amount
	f[FieldFromCurrency] = string(from)
	f[FieldToCurrency] = string(to)
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
