package authz

import (
	"context"
	"net/http"

	"github.com/platinummonkey/docket/pkg/httputil"
	"github.com/platinummonkey/docket/pkg/keycloak"
	"github.com/platinummonkey/docket/pkg/observability"
)

// Session identifies the requester for ownership decisions.
type Session struct {
	// CaseID is the requester's own case file ID.
	CaseID int64
	// Subject is the identity provider subject the session was derived
	// from, when known.
	Subject string
}

// SessionReader resolves the requester's session from an incoming request.
type SessionReader interface {
	SessionFromRequest(r *http.Request) (*Session, bool)
}

// SubjectMapper resolves a provider subject to a local case file ID.
// *store.IdentityMapper satisfies it.
type SubjectMapper interface {
	UserIDFromKeycloakID(ctx context.Context, subject string) (int64, bool, error)
}

// TokenSessionReader derives the session from the request's own bearer token:
// the token subject is looked up in the identity link table. Tokens are
// decode-only here; signature verification happens upstream at ingress.
type TokenSessionReader struct {
	subjects SubjectMapper
	logger   *observability.Logger
}

// NewTokenSessionReader creates a session reader backed by the identity link
// table.
func NewTokenSessionReader(subjects SubjectMapper, logger *observability.Logger) *TokenSessionReader {
	return &TokenSessionReader{subjects: subjects, logger: logger}
}

// SessionFromRequest implements SessionReader.
func (t *TokenSessionReader) SessionFromRequest(r *http.Request) (*Session, bool) {
	token := httputil.BearerToken(r)
	if token == "" {
		return nil, false
	}

	subject, err := keycloak.DecodeSubject(token)
	if err != nil {
		t.logger.WithError(err).Debug("bearer token has no usable subject")
		return nil, false
	}

	caseID, found, err := t.subjects.UserIDFromKeycloakID(r.Context(), subject)
	if err != nil {
		t.logger.WithError(err).Warn("session subject lookup failed")
		return nil, false
	}
	if !found {
		t.logger.WithField("subject", subject).Debug("token subject has no linked case file")
		return nil, false
	}

	return &Session{CaseID: caseID, Subject: subject}, true
}
