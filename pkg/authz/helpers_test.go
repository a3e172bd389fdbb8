package authz

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/platinummonkey/docket/pkg/keycloak"
	"github.com/platinummonkey/docket/pkg/observability"
)

// stubClient is an in-memory ProtectionClient with call counting.
type stubClient struct {
	mu sync.Mutex

	resources map[string]*keycloak.Resource

	findErr   error
	findDelay time.Duration
	missFinds int // first N finds report absent regardless of state
	createErr error

	entitlement *keycloak.Entitlement
	entErr      error

	findCalls   int
	createCalls int
	entCalls    int
}

func newStubClient() *stubClient {
	return &stubClient{resources: map[string]*keycloak.Resource{}}
}

func (c *stubClient) FindResourceByName(ctx context.Context, name string) (*keycloak.Resource, error) {
	c.mu.Lock()
	c.findCalls++
	delay := c.findDelay
	c.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.findErr != nil {
		return nil, c.findErr
	}
	if c.missFinds > 0 {
		c.missFinds--
		return nil, nil
	}
	return c.resources[name], nil
}

func (c *stubClient) CreateResource(ctx context.Context, res *keycloak.Resource) (*keycloak.Resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createCalls++
	if c.createErr != nil {
		return nil, c.createErr
	}
	created := *res
	created.ID = "rid-" + res.Name
	c.resources[res.Name] = &created
	return &created, nil
}

func (c *stubClient) Entitlements(ctx context.Context, userToken, resourceID, scope string) (*keycloak.Entitlement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entCalls++
	if c.entErr != nil {
		return nil, c.entErr
	}
	if c.entitlement != nil {
		return c.entitlement, nil
	}
	return &keycloak.Entitlement{Granted: false}, nil
}

// stubDirectory maps case IDs to external IDs.
type stubDirectory struct {
	externalIDs map[int64]string
	err         error
}

func (d *stubDirectory) KeycloakUserIDFromUserID(ctx context.Context, caseID int64) (string, bool, error) {
	if d.err != nil {
		return "", false, d.err
	}
	id, ok := d.externalIDs[caseID]
	return id, ok, nil
}

// stubSessions returns a fixed session for every request.
type stubSessions struct {
	session *Session
}

func (s *stubSessions) SessionFromRequest(r *http.Request) (*Session, bool) {
	if s.session == nil {
		return nil, false
	}
	return s.session, true
}

func newTestService(client ProtectionClient, directory ExternalDirectory, sessions SessionReader) *Service {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewService(client, directory, sessions, logger, observability.NewMetrics(nil))
}
