// Package keycloak implements the identity provider protection API client
// used by the case file authorization core.
//
// # Overview
//
// The client speaks three provider surfaces:
//
//  1. Token endpoint, client-credentials grant: the service-account token
//     (PAT) used to manage protected resources. The token is cached with the
//     provider's TTL and refreshed by at most one caller at a time.
//  2. Resource registration endpoint (resource_set): lookup by exact name,
//     fetch by ID, and creation of case file resources.
//  3. Token endpoint, UMA ticket grant: exchanges the requesting user's own
//     bearer token for a requesting party token (RPT) carrying the granted
//     permissions for one {resourceID}#{scope} pair.
//
// # Trust boundary
//
// Token decoding here is decode-only. The tokens this package inspects are
// issued by the trusted token endpoint (RPTs) or verified upstream at ingress
// (user bearer tokens); signature verification is not this layer's job.
//
// # Degradation
//
// Lookups degrade to "resource absent" on registry availability problems
// instead of failing the caller; resource creation and token exchange fail
// loud. See the authz package for how callers layer decisions on top.
package keycloak
