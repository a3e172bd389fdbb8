package authz

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/platinummonkey/docket/pkg/keycloak"
)

// ErrSharingNotAvailable marks the case file sharing workflow as a documented
// extension point that is not implemented yet.
var ErrSharingNotAvailable = errors.New("case file sharing is not available yet")

// EnsureCaseFileResource returns the provider resource for a case file,
// registering it when absent. Idempotent: an existing resource is returned
// as-is, never merged or updated. Concurrent calls for the same case ID are
// collapsed in process; cross-process creation races are resolved by
// re-fetching after a failed create.
func (s *Service) EnsureCaseFileResource(ctx context.Context, caseID int64, ownerExternalID string) (*keycloak.Resource, error) {
	name := ResourceName(caseID)
	v, err, _ := s.ensureGroup.Do(name, func() (interface{}, error) {
		return s.ensureResource(ctx, caseID, name, ownerExternalID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*keycloak.Resource), nil
}

func (s *Service) ensureResource(ctx context.Context, caseID int64, name, ownerExternalID string) (*keycloak.Resource, error) {
	existing, err := s.client.FindResourceByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.metrics.ResourceLookupsTotal.WithLabelValues("hit").Inc()
		s.resourceIDs.Add(caseID, existing.ID)
		return existing, nil
	}

	created, err := s.client.CreateResource(ctx, defaultResource(caseID, name, ownerExternalID))
	if err != nil {
		// Another process may have registered the resource between our
		// lookup and create; the provider rejects duplicate names.
		refetched, ferr := s.client.FindResourceByName(ctx, name)
		if ferr == nil && refetched != nil {
			s.logger.WithField("case_file_id", caseID).Info("resource created concurrently elsewhere")
			s.metrics.ResourceCreationsTotal.WithLabelValues("raced").Inc()
			s.resourceIDs.Add(caseID, refetched.ID)
			return refetched, nil
		}
		s.metrics.ResourceCreationsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("case file %d resource registration failed: %w", caseID, err)
	}

	s.metrics.ResourceCreationsTotal.WithLabelValues("success").Inc()
	s.resourceIDs.Add(caseID, created.ID)
	return created, nil
}

// defaultResource builds the initial registration for a case file: the owner
// holds every scope and seeds all three ACL lists.
func defaultResource(caseID int64, name, ownerExternalID string) *keycloak.Resource {
	return &keycloak.Resource{
		Name:   name,
		Type:   ResourceTypeCaseFile,
		Owner:  keycloak.ResourceOwner(ownerExternalID),
		Scopes: AllScopes(),
		Attributes: map[string][]string{
			"caseFileId": {strconv.FormatInt(caseID, 10)},
			"readers":    {ownerExternalID},
			"writers":    {ownerExternalID},
			"admins":     {ownerExternalID},
		},
	}
}

// CaseFileResourceID returns the provider-assigned resource ID for a case
// file, if one is registered. IDs are memoized; a cache miss costs one
// provider round trip.
func (s *Service) CaseFileResourceID(ctx context.Context, caseID int64) (string, bool) {
	if id, ok := s.resourceIDs.Get(caseID); ok {
		s.metrics.ResourceLookupsTotal.WithLabelValues("cached").Inc()
		return id, true
	}

	resource, err := s.client.FindResourceByName(ctx, ResourceName(caseID))
	if err != nil || resource == nil {
		s.metrics.ResourceLookupsTotal.WithLabelValues("miss").Inc()
		return "", false
	}
	s.metrics.ResourceLookupsTotal.WithLabelValues("hit").Inc()
	s.resourceIDs.Add(caseID, resource.ID)
	return resource.ID, true
}

// ShareCaseFile will grant an external user a scope on a case file's ACL
// lists once the sharing workflow ships.
func (s *Service) ShareCaseFile(ctx context.Context, caseID int64, externalID, scope string) error {
	return ErrSharingNotAvailable
}

// UnshareCaseFile is the inverse of ShareCaseFile and shares its status.
func (s *Service) UnshareCaseFile(ctx context.Context, caseID int64, externalID string) error {
	return ErrSharingNotAvailable
}
