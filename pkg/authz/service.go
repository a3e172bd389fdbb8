package authz

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/docket/pkg/httputil"
	"github.com/platinummonkey/docket/pkg/keycloak"
	"github.com/platinummonkey/docket/pkg/observability"
)

// ProtectionClient is the slice of the identity provider's protection API the
// service needs. *keycloak.Client satisfies it.
type ProtectionClient interface {
	FindResourceByName(ctx context.Context, name string) (*keycloak.Resource, error)
	CreateResource(ctx context.Context, res *keycloak.Resource) (*keycloak.Resource, error)
	Entitlements(ctx context.Context, userToken, resourceID, scope string) (*keycloak.Entitlement, error)
}

// ExternalDirectory maps local user IDs to the identity provider's external
// IDs. *store.IdentityMapper satisfies it.
type ExternalDirectory interface {
	KeycloakUserIDFromUserID(ctx context.Context, caseID int64) (string, bool, error)
}

const (
	resourceIDCacheSize = 1024
	resourceIDCacheTTL  = time.Hour
)

// Service answers case file access questions and lazily provisions the
// provider-side resources backing them.
type Service struct {
	client    ProtectionClient
	directory ExternalDirectory
	sessions  SessionReader
	logger    *observability.Logger
	metrics   *observability.Metrics

	// Resource IDs are immutable once assigned, so a hit never goes stale;
	// the TTL only bounds memory for long-dead case files.
	resourceIDs *expirable.LRU[int64, string]
	ensureGroup singleflight.Group
}

// NewService creates an authorization service. sessions may be nil when the
// deployment never self-provisions (checks against absent resources then
// always deny).
func NewService(client ProtectionClient, directory ExternalDirectory, sessions SessionReader, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		client:      client,
		directory:   directory,
		sessions:    sessions,
		logger:      logger,
		metrics:     metrics,
		resourceIDs: expirable.NewLRU[int64, string](resourceIDCacheSize, nil, resourceIDCacheTTL),
	}
}

// CheckCaseFileAccess reports whether the request's bearer token grants the
// given scope on the case file. Fail closed: no token, unknown resource for a
// non-owner, provider errors and ambiguous statuses are all denials.
func (s *Service) CheckCaseFileAccess(r *http.Request, caseID int64, scope string) bool {
	ctx := r.Context()
	log := s.logger.WithFields(map[string]interface{}{
		"case_file_id": caseID,
		"scope":        scope,
	})

	token := httputil.BearerToken(r)
	if token == "" {
		log.Debug("access check without bearer token")
		s.metrics.AuthzDecisionsTotal.WithLabelValues("no_token", scope).Inc()
		return false
	}

	resource, err := s.client.FindResourceByName(ctx, ResourceName(caseID))
	if err != nil {
		log.WithError(err).Warn("resource lookup failed during access check")
		s.metrics.AuthzErrorsTotal.WithLabelValues("find_resource").Inc()
		s.metrics.AuthzDecisionsTotal.WithLabelValues("error", scope).Inc()
		return false
	}

	if resource == nil {
		resource = s.selfProvision(r, caseID, log)
		if resource == nil {
			s.metrics.AuthzDecisionsTotal.WithLabelValues("not_found", scope).Inc()
			return false
		}
	}

	ent, err := s.client.Entitlements(ctx, token, resource.ID, scope)
	if err != nil {
		log.WithError(err).Warn("entitlement exchange failed")
		s.metrics.RPTExchangesTotal.WithLabelValues("error").Inc()
		s.metrics.AuthzErrorsTotal.WithLabelValues("entitlements").Inc()
		s.metrics.AuthzDecisionsTotal.WithLabelValues("error", scope).Inc()
		return false
	}

	if ent.Granted {
		s.metrics.RPTExchangesTotal.WithLabelValues("granted").Inc()
		s.metrics.AuthzDecisionsTotal.WithLabelValues("granted", scope).Inc()
		return true
	}

	s.metrics.RPTExchangesTotal.WithLabelValues("denied").Inc()
	s.metrics.AuthzDecisionsTotal.WithLabelValues("denied", scope).Inc()
	log.WithField("status", ent.Status).Debug("access denied by identity provider")
	return false
}

// selfProvision creates the resource for a case file that has none, but only
// when the session holder is checking their own case. Returns nil when
// provisioning is not allowed or fails.
func (s *Service) selfProvision(r *http.Request, caseID int64, log *observability.Logger) *keycloak.Resource {
	ctx := r.Context()
	if s.sessions == nil {
		log.Debug("no resource registered and no session reader configured")
		return nil
	}
	sess, ok := s.sessions.SessionFromRequest(r)
	if !ok || sess.CaseID != caseID {
		log.Debug("no resource registered and requester does not own the case file")
		return nil
	}

	externalID, found, err := s.directory.KeycloakUserIDFromUserID(ctx, caseID)
	if err != nil {
		log.WithError(err).Warn("external ID lookup failed during self-provisioning")
		s.metrics.AuthzErrorsTotal.WithLabelValues("external_id_lookup").Inc()
		return nil
	}
	if !found {
		log.Warn("case file owner has no linked identity provider account")
		return nil
	}

	resource, err := s.EnsureCaseFileResource(ctx, caseID, externalID)
	if err != nil {
		log.WithError(err).Error("self-provisioning failed")
		return nil
	}
	return resource
}
