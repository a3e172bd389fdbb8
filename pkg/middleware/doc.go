// Package middleware provides the HTTP-facing authorization surface.
//
// # Overview
//
// Route handlers call CheckCaseFileAuthorization (or its document-unit
// variant) with the raw identifier from the request and get back a tagged
// result: either an authorized user ID or a ready-to-write HTTP rejection.
// The reason strings and status codes in rejections are a stable contract
// that clients match on.
//
// # Components
//
// AuthCheck: per-route authorization checks
//
//	result := check.CheckCaseFileAuthorization(r, emailID, middleware.Options{
//		RequiredScope: authz.ScopeWrite,
//	})
//	if !result.Authorized {
//		httputil.WriteJSON(w, result.Response.Status, result.Response.Body)
//		return
//	}
//
// RequireCaseFileScope: mux adapter running the same check on the
// {caseFileId} route variable and stashing the resolved ID in the context.
//
// TokenVerifier: ingress bearer-token signature verification against the
// identity provider's JWKS. Everything downstream of it is decode-only.
//
// # Related Packages
//
//   - pkg/authz: access decisions
//   - pkg/store: identifier resolution
package middleware
