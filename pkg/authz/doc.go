// Package authz implements case file access control on top of the identity
// provider's protection API. Each case file is mirrored as a provider-side
// resource named "case-file:{id}"; access checks exchange the caller's bearer
// token for a requesting party token scoped to that resource.
//
// Every ambiguous outcome is a denial. The only path that creates a resource
// is an owner checking access to their own case file.
package authz
