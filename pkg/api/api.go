// Package api defines the public API endpoints and headers for the
// tabula gateway.
package api

// API version
const Version = "0.1.0"

// API endpoints
const (
	EndpointUpload  = "/api/v1/upload"
	EndpointAsk     = "/api/v1/ask"
	EndpointSuggest = "/api/v1/suggest"
	EndpointHistory = "/api/v1/history"
	EndpointExport  = "/api/v1/export"
	EndpointStatus  = "/api/v1/status"
	EndpointAudit   = "/api/v1/audit/summary"
	EndpointHealth  = "/health"
	EndpointReady   = "/readyz"
)

// HTTP headers
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	HeaderQueryID       = "X-Query-ID"
)

// Content types
const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

// SessionCookie is the cookie carrying the session ID.
const SessionCookie = "tabula_session"
