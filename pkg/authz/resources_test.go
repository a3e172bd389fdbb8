package authz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/docket/pkg/keycloak"
)

func TestEnsureCaseFileResource_CreatesWithDefaults(t *testing.T) {
	client := newStubClient()
	svc := newTestService(client, &stubDirectory{}, nil)

	res, err := svc.EnsureCaseFileResource(context.Background(), 42, "ext-42")
	require.NoError(t, err)

	assert.Equal(t, "case-file:42", res.Name)
	assert.Equal(t, "case-file", res.Type)
	assert.Equal(t, keycloak.ResourceOwner("ext-42"), res.Owner)
	assert.Equal(t, []string{"case-file:read", "case-file:write", "case-file:admin"}, res.Scopes)
	assert.Equal(t, []string{"42"}, res.Attributes["caseFileId"])
	assert.Equal(t, []string{"ext-42"}, res.Attributes["readers"])
	assert.Equal(t, []string{"ext-42"}, res.Attributes["writers"])
	assert.Equal(t, []string{"ext-42"}, res.Attributes["admins"])
	assert.Equal(t, 1, client.createCalls)
}

func TestEnsureCaseFileResource_Idempotent(t *testing.T) {
	client := newStubClient()
	svc := newTestService(client, &stubDirectory{}, nil)
	ctx := context.Background()

	first, err := svc.EnsureCaseFileResource(ctx, 42, "ext-42")
	require.NoError(t, err)

	second, err := svc.EnsureCaseFileResource(ctx, 42, "ext-42")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, client.createCalls, "an existing resource must never be re-created")
	// Existing attributes stay untouched, no ACL duplication
	assert.Equal(t, []string{"ext-42"}, second.Attributes["readers"])
}

func TestEnsureCaseFileResource_CreationRaceResolvedByRefetch(t *testing.T) {
	client := newStubClient()
	// First find misses, the create collides with another process's write,
	// and the re-fetch sees the winner's resource.
	client.createErr = errors.New("409 conflict: name already registered")
	client.missFinds = 1
	client.resources["case-file:42"] = &keycloak.Resource{ID: "rid-raced", Name: "case-file:42"}
	svc := newTestService(client, &stubDirectory{}, nil)

	res, err := svc.EnsureCaseFileResource(context.Background(), 42, "ext-42")
	require.NoError(t, err)
	assert.Equal(t, "rid-raced", res.ID)
	assert.Equal(t, 1, client.createCalls)
	assert.Equal(t, 2, client.findCalls)
}

func TestEnsureCaseFileResource_CreateFailsAndRefetchMisses(t *testing.T) {
	client := newStubClient()
	client.createErr = errors.New("boom")
	svc := newTestService(client, &stubDirectory{}, nil)

	_, err := svc.EnsureCaseFileResource(context.Background(), 42, "ext-42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource registration failed")
	assert.Equal(t, 2, client.findCalls, "failed create must be retried as a re-fetch")
}

func TestEnsureCaseFileResource_ConcurrentCallsCollapsed(t *testing.T) {
	client := newStubClient()
	client.findDelay = 30 * time.Millisecond
	svc := newTestService(client, &stubDirectory{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.EnsureCaseFileResource(context.Background(), 42, "ext-42")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, client.createCalls, "in-process duplicates must collapse to one create")
}

func TestCaseFileResourceID_Memoized(t *testing.T) {
	client := newStubClient()
	client.resources["case-file:42"] = &keycloak.Resource{ID: "rid-42", Name: "case-file:42"}
	svc := newTestService(client, &stubDirectory{}, nil)
	ctx := context.Background()

	id, ok := svc.CaseFileResourceID(ctx, 42)
	require.True(t, ok)
	assert.Equal(t, "rid-42", id)

	id, ok = svc.CaseFileResourceID(ctx, 42)
	require.True(t, ok)
	assert.Equal(t, "rid-42", id)
	assert.Equal(t, 1, client.findCalls, "second lookup must come from the cache")
}

func TestCaseFileResourceID_Unregistered(t *testing.T) {
	client := newStubClient()
	svc := newTestService(client, &stubDirectory{}, nil)

	_, ok := svc.CaseFileResourceID(context.Background(), 404)
	assert.False(t, ok)
}

func TestSharingStubs(t *testing.T) {
	svc := newTestService(newStubClient(), &stubDirectory{}, nil)
	ctx := context.Background()

	err := svc.ShareCaseFile(ctx, 42, "ext-99", ScopeRead)
	assert.ErrorIs(t, err, ErrSharingNotAvailable)

	err = svc.UnshareCaseFile(ctx, 42, "ext-99")
	assert.ErrorIs(t, err, ErrSharingNotAvailable)
}
