package authz

import (
	"sort"

	"github.com/platinummonkey/docket/pkg/keycloak"
)

// AccessibleCaseIDs derives the set of case files the token grants access to
// from its entitlement claims. The token holder's own case ID is always
// included, so a token with no entitlements still yields [ownCaseID]. Output
// is deduplicated and sorted.
//
// Provider resource names that do not follow the case-file:{id} convention
// are counted, not silently dropped, so naming drift shows up on a dashboard
// instead of as unexplained missing cases.
func (s *Service) AccessibleCaseIDs(token string, ownCaseID int64) []int64 {
	seen := map[int64]struct{}{ownCaseID: {}}

	perms, present, err := keycloak.DecodePermissions(token)
	if err != nil {
		s.logger.WithError(err).Debug("token decoding failed while listing accessible case files")
	} else if present {
		for _, perm := range perms {
			if perm.ResourceName == "" {
				continue
			}
			id, ok := ParseResourceName(perm.ResourceName)
			if !ok {
				s.metrics.ResourceNameParseFailures.Inc()
				s.logger.WithField("resource_name", perm.ResourceName).
					Warn("resource name does not match the case-file naming convention")
				continue
			}
			seen[id] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
