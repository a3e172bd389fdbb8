// Package store provides relational lookups for the case file authorization
// core: identifier resolution and account/identity mapping.
//
// # Identifier Resolution
//
// Case files are referenced three ways by callers: a numeric local ID, the
// same ID as a decimal string, or a v4 UUID pointing at an email or document
// property record linked to a case. Resolver normalizes all of them to the
// canonical int64 case file ID:
//
//	resolver := store.NewResolver(db, logger)
//	caseID, ok := resolver.Resolve(ctx, "0123") // 123, no store access
//	caseID, ok = resolver.Resolve(ctx, emailUUID) // one lookup
//
// Single resolution soft-fails: store errors are logged and reported as a
// miss. Batch resolution propagates store errors to the caller instead; batch
// callers are expected to handle failure at a higher level.
//
// # Identity Mapping
//
// IdentityMapper bridges local case file IDs and the external identity
// provider's subject IDs through the user_identities join table, filtered by
// the provider name constant.
package store
