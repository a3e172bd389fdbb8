package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/docket/pkg/authz"
	"github.com/platinummonkey/docket/pkg/contextkeys"
	"github.com/platinummonkey/docket/pkg/httputil"
	"github.com/platinummonkey/docket/pkg/observability"
)

// Stable rejection reasons. Clients match on these strings; do not reword.
const (
	ReasonNotFound  = "Case file not found for this email"
	ReasonNoToken   = "Unauthorized - No access token"
	ReasonForbidden = "Forbidden - Insufficient permissions for this case file"
	ReasonInternal  = "Internal server error during authorization"
)

// MissingUserID is returned as the UserID when AllowMissing lets an
// unresolvable identifier pass through.
const MissingUserID int64 = -1

// CaseResolver maps raw identifiers to case file IDs. *store.Resolver
// satisfies it.
type CaseResolver interface {
	Resolve(ctx context.Context, ref interface{}) (int64, bool)
}

// UnitResolver maps document unit identifiers to their owning user ID.
// *store.IdentityMapper satisfies it.
type UnitResolver interface {
	UserIDFromUnitID(ctx context.Context, ref interface{}) (int64, bool, error)
}

// AccessChecker decides scope grants. *authz.Service satisfies it.
type AccessChecker interface {
	CheckCaseFileAccess(r *http.Request, caseID int64, scope string) bool
}

// Options tunes a single authorization check.
type Options struct {
	// RequiredScope defaults to authz.ScopeRead.
	RequiredScope string
	// AllowMissing lets requests whose identifier resolves to nothing pass
	// through as authorized with MissingUserID, for routes that treat an
	// unknown case file as an empty result rather than an error.
	AllowMissing bool
}

// Rejection is a ready-to-write HTTP denial.
type Rejection struct {
	Status int
	Body   RejectionBody
}

// RejectionBody is the JSON shape of a denial response.
type RejectionBody struct {
	Error string `json:"error"`
	Scope string `json:"scope,omitempty"`
}

// AuthCheckResult is a tagged union: Authorized with a UserID, or a
// Rejection to write back.
type AuthCheckResult struct {
	Authorized bool
	UserID     int64
	Response   *Rejection
}

func rejected(status int, reason, scope string) AuthCheckResult {
	return AuthCheckResult{
		Response: &Rejection{Status: status, Body: RejectionBody{Error: reason, Scope: scope}},
	}
}

// AuthCheck runs per-route authorization checks.
type AuthCheck struct {
	resolver CaseResolver
	units    UnitResolver
	access   AccessChecker
	logger   *observability.Logger
}

// NewAuthCheck creates the route-level authorization checker.
func NewAuthCheck(resolver CaseResolver, units UnitResolver, access AccessChecker, logger *observability.Logger) *AuthCheck {
	return &AuthCheck{resolver: resolver, units: units, access: access, logger: logger}
}

// CheckCaseFileAuthorization authorizes access to the case file identified by
// idOrEmailID (numeric ID, numeric string, or UUID-shaped email reference).
// Any panic below the check surfaces as a 500 rejection rather than taking
// the request down.
func (c *AuthCheck) CheckCaseFileAuthorization(r *http.Request, idOrEmailID interface{}, opts Options) (result AuthCheckResult) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.WithField("panic", rec).Error("authorization check panicked")
			result = rejected(http.StatusInternalServerError, ReasonInternal, "")
		}
	}()

	caseID, ok := c.resolver.Resolve(r.Context(), idOrEmailID)
	if !ok {
		return c.missing(opts)
	}
	return c.authorize(r, caseID, opts)
}

// CheckDocumentUnitAuthorization is CheckCaseFileAuthorization for routes
// addressed by a document unit rather than a case file.
func (c *AuthCheck) CheckDocumentUnitAuthorization(r *http.Request, unitRef interface{}, opts Options) (result AuthCheckResult) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.WithField("panic", rec).Error("authorization check panicked")
			result = rejected(http.StatusInternalServerError, ReasonInternal, "")
		}
	}()

	userID, found, err := c.units.UserIDFromUnitID(r.Context(), unitRef)
	if err != nil {
		c.logger.WithError(err).Error("document unit owner lookup failed")
		return rejected(http.StatusInternalServerError, ReasonInternal, "")
	}
	if !found {
		return c.missing(opts)
	}
	return c.authorize(r, userID, opts)
}

func (c *AuthCheck) missing(opts Options) AuthCheckResult {
	if opts.AllowMissing {
		return AuthCheckResult{Authorized: true, UserID: MissingUserID}
	}
	return rejected(http.StatusNotFound, ReasonNotFound, "")
}

func (c *AuthCheck) authorize(r *http.Request, caseID int64, opts Options) AuthCheckResult {
	if httputil.BearerToken(r) == "" {
		return rejected(http.StatusUnauthorized, ReasonNoToken, "")
	}

	scope := opts.RequiredScope
	if scope == "" {
		scope = authz.ScopeRead
	}

	if !c.access.CheckCaseFileAccess(r, caseID, scope) {
		return rejected(http.StatusForbidden, ReasonForbidden, scope)
	}

	return AuthCheckResult{Authorized: true, UserID: caseID}
}

// RequireCaseFileScope wraps handlers behind an authorization check on the
// {caseFileId} route variable. The resolved case ID lands in the request
// context for the handler.
func (c *AuthCheck) RequireCaseFileScope(scope string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ref := mux.Vars(r)["caseFileId"]
			result := c.CheckCaseFileAuthorization(r, ref, Options{RequiredScope: scope})
			if !result.Authorized {
				httputil.WriteJSON(w, result.Response.Status, result.Response.Body)
				return
			}

			ctx := contextkeys.WithCaseFileID(r.Context(), result.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
