// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/platinummonkey/docket/pkg/contextkeys"
//   ctx = context.WithValue(ctx, contextkeys.SessionKey, sess)
//   sess := ctx.Value(contextkeys.SessionKey).(*authz.Session)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SessionKey contains *authz.Session
	// Set by: middleware.RequireCaseFileScope (pkg/middleware/authorize.go)
	// Required by: Handlers needing the authenticated user's case ID and subject
	// Type: *authz.Session
	SessionKey Key = "session"

	// CaseFileIDKey contains the resolved local case file ID
	// Set by: middleware.RequireCaseFileScope after identifier resolution
	// Used by: Route handlers operating on the resolved case
	// Type: int64
	CaseFileIDKey Key = "case_file_id"

	// RequestIDKey contains request ID string (UUID)
	// Set by: HTTP middleware, observability layer
	// Used by: Logger, audit trail
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// Helper functions for type-safe context operations

// WithSession adds the authenticated session to the context
func WithSession(ctx context.Context, sess interface{}) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

// WithCaseFileID adds the resolved case file ID to the context
func WithCaseFileID(ctx context.Context, caseFileID int64) context.Context {
	return context.WithValue(ctx, CaseFileIDKey, caseFileID)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetCaseFileID retrieves the resolved case file ID from context
func GetCaseFileID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(CaseFileIDKey).(int64)
	return id, ok
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
