package log

import "sort"

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
	FieldOperation   = "operation"
	FieldPeriod      = "period"
	FieldPeriodStart = "period_start"
	FieldPeriodEnd   = "period_end"
	FieldTotal       = "total"
	FieldRows        = "rows"
	FieldMoved       = "moved"
	FieldRejected    = "rejected"
	FieldArchiveRef  = "archive_ref"
	FieldSource      = "source"
	FieldCommand     = "command"
	FieldUserID      = "user_id"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentWebhook   = "webhook"
	ComponentArchive   = "archive"
	ComponentScheduler = "scheduler"
	ComponentWorker    = "worker"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpMove  = "move"
	OpReply = "reply"
	OpParse = "parse"
)

// LogFields collects attributes for one record.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error text; nil errors are ignored.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithMove adds archive move counters.
func (f LogFields) WithMove(moved, rejected int, ref string) LogFields {
	f[FieldMoved] = moved
	f[FieldRejected] = rejected
	f[FieldArchiveRef] = ref
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice flattens the fields into slog key/value pairs, sorted by key so
// records are stable across runs.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
