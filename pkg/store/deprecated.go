package store

import "context"

// Compatibility shims for the identifier-resolution names used before the
// resolver was consolidated. Each shim logs a deprecation warning and
// delegates; none of them carry logic of their own.

// GetCaseFileIDFromEmailID resolves an email reference to a case file ID.
//
// Deprecated: Use Resolver.Resolve.
func (r *Resolver) GetCaseFileIDFromEmailID(ctx context.Context, ref interface{}) (int64, bool) {
	r.logger.WithField("deprecated", "GetCaseFileIDFromEmailID").
		Warn("deprecated: use Resolver.Resolve")
	return r.Resolve(ctx, ref)
}

// GetCaseFileIDFromDocumentID resolves a document property reference to a
// case file ID.
//
// Deprecated: Use Resolver.Resolve.
func (r *Resolver) GetCaseFileIDFromDocumentID(ctx context.Context, ref interface{}) (int64, bool) {
	r.logger.WithField("deprecated", "GetCaseFileIDFromDocumentID").
		Warn("deprecated: use Resolver.Resolve")
	return r.Resolve(ctx, ref)
}

// GetCaseFileIDsBatch resolves many case file references at once.
//
// Deprecated: Use Resolver.ResolveBatch.
func (r *Resolver) GetCaseFileIDsBatch(ctx context.Context, reqs []BatchRequest) ([]BatchResult, error) {
	r.logger.WithField("deprecated", "GetCaseFileIDsBatch").
		Warn("deprecated: use Resolver.ResolveBatch")
	return r.ResolveBatch(ctx, reqs)
}
