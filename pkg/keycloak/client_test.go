package keycloak

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/docket/pkg/observability"
)

// unsignedToken builds an alg=none JWT carrying the given claims. These
// tests only exercise decode-only paths, so no signature is needed.
func unsignedToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "."
}

func rptWithPermissions(t *testing.T, perms []map[string]interface{}) string {
	claims := map[string]interface{}{"sub": "service-account"}
	if perms != nil {
		claims["authorization"] = map[string]interface{}{"permissions": perms}
	}
	return unsignedToken(t, claims)
}

// fakeProvider is a minimal in-memory Keycloak standing in for the token and
// resource_set endpoints.
type fakeProvider struct {
	t *testing.T

	tokenFetches    atomic.Int64
	umaExchanges    atomic.Int64
	resourceCreates atomic.Int64

	// Behavior knobs
	umaStatus   int    // 0 means 200 with umaRPT
	umaRPT      string // RPT returned on 200
	resources   map[string]*Resource
	findStatus  int // 0 means normal behavior
	createFails bool
}

func newFakeProvider(t *testing.T) *fakeProvider {
	return &fakeProvider{t: t, resources: map[string]*Resource{}}
}

func (f *fakeProvider) server() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/realms/test/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(f.t, r.ParseForm())
		switch r.PostForm.Get("grant_type") {
		case "client_credentials":
			f.tokenFetches.Add(1)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "service-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case umaTicketGrantType:
			f.umaExchanges.Add(1)
			assert.NotEmpty(f.t, r.PostForm.Get("permission"))
			assert.Equal(f.t, "docket-app", r.PostForm.Get("audience"))
			if f.umaStatus != 0 && f.umaStatus != http.StatusOK {
				w.WriteHeader(f.umaStatus)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"access_token": f.umaRPT})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	mux.HandleFunc("/realms/test/authz/protection/resource_set", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			f.resourceCreates.Add(1)
			if f.createFails {
				w.WriteHeader(http.StatusForbidden)
				io.WriteString(w, `{"error":"access_denied"}`)
				return
			}
			var res Resource
			require.NoError(f.t, json.NewDecoder(r.Body).Decode(&res))
			res.ID = "rid-" + res.Name
			f.resources[res.Name] = &res
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(&res)
			return
		}

		if f.findStatus != 0 {
			w.WriteHeader(f.findStatus)
			return
		}
		name := r.URL.Query().Get("name")
		if res, ok := f.resources[name]; ok {
			json.NewEncoder(w).Encode([]string{res.ID})
			return
		}
		json.NewEncoder(w).Encode([]string{})
	})

	mux.HandleFunc("/realms/test/authz/protection/resource_set/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/realms/test/authz/protection/resource_set/"):]
		for _, res := range f.resources {
			if res.ID == id {
				json.NewEncoder(w).Encode(res)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	return NewClient(Config{
		BaseURL:      baseURL,
		Realm:        "test",
		ClientID:     "docket-app",
		ClientSecret: "secret",
		Timeout:      2 * time.Second,
	}, observability.NewLogger(observability.ErrorLevel, io.Discard))
}

func TestServiceToken_CachedAcrossCalls(t *testing.T) {
	provider := newFakeProvider(t)
	srv := provider.server()
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	tok, err := client.ServiceToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "service-token", tok)

	_, err = client.ServiceToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), provider.tokenFetches.Load(), "second call must reuse the cached token")
}

func TestFindResourceByName(t *testing.T) {
	provider := newFakeProvider(t)
	provider.resources["case-file:42"] = &Resource{
		ID:    "rid-42",
		Name:  "case-file:42",
		Type:  "case-file",
		Owner: "ext-42",
		Attributes: map[string][]string{
			"caseFileId": {"42"},
		},
	}
	srv := provider.server()
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	res, err := client.FindResourceByName(context.Background(), "case-file:42")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "rid-42", res.ID)
	assert.Equal(t, ResourceOwner("ext-42"), res.Owner)
	assert.Equal(t, []string{"42"}, res.Attributes["caseFileId"])
}

func TestFindResourceByName_AbsentIsNotAnError(t *testing.T) {
	provider := newFakeProvider(t)
	srv := provider.server()
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	res, err := client.FindResourceByName(context.Background(), "case-file:404")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestFindResourceByName_RegistryErrorDegradesToAbsent(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusBadGateway} {
		provider := newFakeProvider(t)
		provider.findStatus = status
		srv := provider.server()

		client := newTestClient(t, srv.URL)
		res, err := client.FindResourceByName(context.Background(), "case-file:42")
		assert.NoError(t, err, "status %d", status)
		assert.Nil(t, res, "status %d", status)
		srv.Close()
	}
}

func TestCreateResource(t *testing.T) {
	provider := newFakeProvider(t)
	srv := provider.server()
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	created, err := client.CreateResource(context.Background(), &Resource{
		Name:   "case-file:42",
		Type:   "case-file",
		Owner:  "ext-42",
		Scopes: []string{"case-file:read", "case-file:write", "case-file:admin"},
		Attributes: map[string][]string{
			"caseFileId": {"42"},
			"readers":    {"ext-42"},
			"writers":    {"ext-42"},
			"admins":     {"ext-42"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "rid-case-file:42", created.ID)
	assert.Equal(t, int64(1), provider.resourceCreates.Load())
}

func TestCreateResource_RejectionFailsLoud(t *testing.T) {
	provider := newFakeProvider(t)
	provider.createFails = true
	srv := provider.server()
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.CreateResource(context.Background(), &Resource{Name: "case-file:42", Owner: "ext-42"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource creation rejected")
}

func TestCreateResource_InvalidInputFailsFast(t *testing.T) {
	provider := newFakeProvider(t)
	srv := provider.server()
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	_, err := client.CreateResource(ctx, &Resource{Owner: "ext-42"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")

	_, err = client.CreateResource(ctx, &Resource{Name: "case-file:42"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner is required")

	// Programmer errors never reach the network
	assert.Equal(t, int64(0), provider.resourceCreates.Load())
}

func TestEntitlements_Granted(t *testing.T) {
	provider := newFakeProvider(t)
	provider.umaRPT = rptWithPermissions(t, []map[string]interface{}{
		{"rsid": "rid-42", "rsname": "case-file:42", "scopes": []string{"case-file:read"}},
	})
	srv := provider.server()
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	ent, err := client.Entitlements(context.Background(), "user-token", "rid-42", "case-file:read")
	require.NoError(t, err)
	assert.True(t, ent.Granted)
	require.Len(t, ent.Permissions, 1)
	assert.Equal(t, "rid-42", ent.Permissions[0].ResourceID)
	assert.Equal(t, []string{"case-file:read"}, ent.Permissions[0].Scopes)
}

func TestEntitlements_NoPermissionsClaimIsNotAGrant(t *testing.T) {
	provider := newFakeProvider(t)
	provider.umaRPT = rptWithPermissions(t, nil) // claim absent entirely
	srv := provider.server()
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	ent, err := client.Entitlements(context.Background(), "user-token", "rid-42", "case-file:read")
	require.NoError(t, err)
	assert.False(t, ent.Granted)
}

func TestEntitlements_EmptyPermissionsIsNotAGrant(t *testing.T) {
	provider := newFakeProvider(t)
	provider.umaRPT = rptWithPermissions(t, []map[string]interface{}{})
	srv := provider.server()
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	ent, err := client.Entitlements(context.Background(), "user-token", "rid-42", "case-file:read")
	require.NoError(t, err)
	assert.False(t, ent.Granted)
}

func TestEntitlements_ExpectedDenials(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		provider := newFakeProvider(t)
		provider.umaStatus = status
		srv := provider.server()

		client := newTestClient(t, srv.URL)
		ent, err := client.Entitlements(context.Background(), "user-token", "rid-42", "case-file:read")
		require.NoError(t, err, "status %d", status)
		assert.False(t, ent.Granted)
		assert.Equal(t, status, ent.Status)
		srv.Close()
	}
}

func TestEntitlements_UnexpectedStatusIsAnError(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusTeapot, http.StatusBadGateway} {
		provider := newFakeProvider(t)
		provider.umaStatus = status
		srv := provider.server()

		client := newTestClient(t, srv.URL)
		_, err := client.Entitlements(context.Background(), "user-token", "rid-42", "case-file:read")
		require.Error(t, err, "status %d", status)
		srv.Close()
	}
}

func TestEntitlements_NetworkErrorIsAnError(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1") // nothing listening

	_, err := client.Entitlements(context.Background(), "user-token", "rid-42", "case-file:read")
	require.Error(t, err)
}

func TestResourceOwnerRoundTrip(t *testing.T) {
	// The provider returns owner as an object on reads but accepts a bare
	// string on writes; both must decode to the same ID
	var fromString Resource
	require.NoError(t, json.Unmarshal([]byte(`{"name":"case-file:1","owner":"ext-1"}`), &fromString))
	assert.Equal(t, ResourceOwner("ext-1"), fromString.Owner)

	var fromObject Resource
	require.NoError(t, json.Unmarshal([]byte(`{"name":"case-file:1","owner":{"id":"ext-1","name":"u"}}`), &fromObject))
	assert.Equal(t, ResourceOwner("ext-1"), fromObject.Owner)

	out, err := json.Marshal(fromObject)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"owner":"ext-1"`)
}
