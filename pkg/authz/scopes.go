package authz

import (
	"strconv"
	"strings"
)

// Scopes attached to every case file resource. The provider enforces which of
// them a given requesting party holds.
const (
	ScopeRead  = "case-file:read"
	ScopeWrite = "case-file:write"
	ScopeAdmin = "case-file:admin"
)

// ResourceTypeCaseFile is the provider-side resource type for case files.
const ResourceTypeCaseFile = "case-file"

const resourceNamePrefix = "case-file:"

// AllScopes returns the full scope set for a newly registered case file.
func AllScopes() []string {
	return []string{ScopeRead, ScopeWrite, ScopeAdmin}
}

// ResourceName builds the deterministic provider-side name for a case file.
// The name is the lookup key: one resource per case ID.
func ResourceName(caseID int64) string {
	return resourceNamePrefix + strconv.FormatInt(caseID, 10)
}

// ParseResourceName recovers the case ID from a provider resource name.
// Returns false for names that do not follow the case-file:{id} convention.
func ParseResourceName(name string) (int64, bool) {
	rest, ok := strings.CutPrefix(name, resourceNamePrefix)
	if !ok || rest == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
