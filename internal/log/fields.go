package log

import "log/slog"

// Attribute keys shared by every component.
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldUserID       = "user_id"
	FieldChatID       = "chat_id"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldBackend      = "backend"
	FieldMatchID      = "match_id"
	FieldStartTime    = "start_time"
	FieldMonth        = "month"
	FieldMatchCount   = "match_count"
	FieldInvalidCount = "invalid_count"
	FieldGroupIndex   = "group_index"
	FieldGroupCount   = "group_count"
	FieldDirection    = "direction"
	FieldCacheHit     = "cache_hit"
)

// Component names, one per package that logs.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentHistory  = "history"
	ComponentIngest   = "ingest"
	ComponentBooking  = "booking"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentCache    = "cache"
	ComponentSecurity = "security"
	ComponentBackend  = "backend"
	ComponentTelegram = "telegram"
)

// Operation names for the FieldOperation attribute.
const (
	OpLoad     = "load"
	OpNavigate = "navigate"
	OpPublish  = "publish"
	OpValidate = "validate"
	OpRender   = "render"
	OpShutdown = "shutdown"
)

// attrs builds an ordered attribute list for LogAttrs.
type attrs []slog.Attr

func (a attrs) request(method, path, query, userAgent string) attrs {
	return append(a,
		slog.String(FieldMethod, method),
		slog.String(FieldPath, path),
		slog.String(FieldQuery, query),
		slog.String(FieldUserAgent, userAgent))
}

func (a attrs) response(status int, durationMs int64) attrs {
	return append(a,
		slog.Int(FieldStatusCode, status),
		slog.Int64(FieldDuration, durationMs),
		slog.Bool(FieldSuccess, status < 400))
}

func (a attrs) clientIP(ip string) attrs {
	if ip == "" {
		return a
	}
	return append(a, slog.String(FieldClientIP, ip))
}

func (a attrs) match(id int64, startTime string) attrs {
	return append(a, slog.Int64(FieldMatchID, id), slog.String(FieldStartTime, startTime))
}

func (a attrs) err(err error) attrs {
	if err == nil {
		return a
	}
	return append(a, slog.String(FieldError, err.Error()))
}

func (a attrs) op(name string) attrs {
	return append(a, slog.String(FieldOperation, name))
}
