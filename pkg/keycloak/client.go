package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/platinummonkey/docket/pkg/observability"
)

// umaTicketGrantType is the UMA 2.0 ticket grant, dictated by the provider
const umaTicketGrantType = "urn:ietf:params:oauth:grant-type:uma-ticket"

// Client talks to the identity provider's token and resource protection
// endpoints. Construct one per process and inject it; it holds the shared
// service-account token source.
type Client struct {
	cfg         Config
	http        *http.Client
	tokenSource oauth2.TokenSource
	logger      *observability.Logger
}

// NewClient creates a protection API client. The service-account token
// source caches tokens for their TTL and serializes refreshes, so concurrent
// authorization checks never cause a token-fetch storm.
func NewClient(cfg Config, logger *observability.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL(cfg),
	}
	// The token source performs its own HTTP calls; route them through the
	// same bounded client
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

	return &Client{
		cfg:         cfg,
		http:        httpClient,
		tokenSource: cc.TokenSource(tokenCtx),
		logger:      logger,
	}
}

func tokenURL(cfg Config) string {
	return strings.TrimRight(cfg.BaseURL, "/") + "/realms/" + cfg.Realm + "/protocol/openid-connect/token"
}

func (c *Client) resourceSetURL() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/realms/" + c.cfg.Realm + "/authz/protection/resource_set"
}

// ServiceToken returns a valid service-account token, fetching or refreshing
// only when the cached one has expired.
func (c *Client) ServiceToken(ctx context.Context) (string, error) {
	tok, err := c.tokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("service token fetch failed: %w", err)
	}
	return tok.AccessToken, nil
}

// FindResourceByName looks up a resource by its exact name. Absence (404 or
// an empty result list) returns (nil, nil). Registry availability problems
// also degrade to (nil, nil) with a warn log; callers layer their own
// decision about whether absence is fatal.
func (c *Client) FindResourceByName(ctx context.Context, name string) (*Resource, error) {
	log := c.logger.WithOperation("find_resource").WithField("resource_name", name)

	token, err := c.ServiceToken(ctx)
	if err != nil {
		log.WithError(err).Warn("service token unavailable, treating resource as absent")
		return nil, nil
	}

	query := url.Values{}
	query.Set("name", name)
	query.Set("exactName", "true")

	var ids []string
	status, err := c.getJSON(ctx, c.resourceSetURL()+"?"+query.Encode(), token, &ids)
	if err != nil {
		log.WithError(err).Warn("resource search failed, treating resource as absent")
		return nil, nil
	}
	if status == http.StatusNotFound || len(ids) == 0 {
		return nil, nil
	}
	if status < 200 || status > 299 {
		log.WithField("status", status).Warn("unexpected resource search status, treating resource as absent")
		return nil, nil
	}

	var res Resource
	status, err = c.getJSON(ctx, c.resourceSetURL()+"/"+url.PathEscape(ids[0]), token, &res)
	if err != nil {
		log.WithError(err).Warn("resource fetch failed, treating resource as absent")
		return nil, nil
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status < 200 || status > 299 {
		log.WithField("status", status).Warn("unexpected resource fetch status, treating resource as absent")
		return nil, nil
	}

	return &res, nil
}

// CreateResource registers a new resource and returns it with the provider-
// assigned ID. Unlike lookups, creation fails loud: silent failure here
// would corrupt caller assumptions about what exists.
func (c *Client) CreateResource(ctx context.Context, res *Resource) (*Resource, error) {
	if res == nil || res.Name == "" {
		return nil, fmt.Errorf("resource name is required")
	}
	if res.Owner == "" {
		return nil, fmt.Errorf("resource owner is required")
	}

	log := c.logger.WithOperation("create_resource").WithField("resource_name", res.Name)

	token, err := c.ServiceToken(ctx)
	if err != nil {
		return nil, log.Wrap(err, "resource creation failed")
	}

	body, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("resource encoding failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resourceSetURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("resource creation request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, log.Wrap(err, "resource creation failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, log.Wrap(err, "resource creation response unreadable")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, log.WithField("status", resp.StatusCode).
			Wrap(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
				"resource creation rejected")
	}

	var created Resource
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, log.Wrap(err, "resource creation response malformed")
	}
	if created.Name == "" {
		created.Name = res.Name
	}
	return &created, nil
}

// Entitlements performs the UMA ticket exchange for one resource and scope,
// authenticated as the requesting user (their bearer token, not the service
// token).
//
// 200 responses decode the returned RPT and report Granted only when the
// permissions claim is present, array-typed, and non-empty. 401 and 403 are
// expected denials (Granted=false, nil error). Every other status is an
// error; callers fail closed on it.
func (c *Client) Entitlements(ctx context.Context, userToken, resourceID, scope string) (*Entitlement, error) {
	form := url.Values{}
	form.Set("grant_type", umaTicketGrantType)
	form.Set("audience", c.cfg.ClientID)
	form.Set("permission", resourceID+"#"+scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL(c.cfg), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("entitlement request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+userToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("entitlement exchange failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Expected denial path, not exceptional
		c.logger.WithOperation("uma_ticket_exchange").
			WithField("status", resp.StatusCode).
			Debug("entitlement denied by provider")
		return &Entitlement{Granted: false, Status: resp.StatusCode}, nil

	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected entitlement status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("entitlement response malformed: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("entitlement response missing access token")
	}

	perms, present, err := DecodePermissions(tokenResp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("rpt decoding failed: %w", err)
	}

	return &Entitlement{
		Granted:     present && len(perms) > 0,
		Permissions: perms,
		Status:      resp.StatusCode,
	}, nil
}

// getJSON performs a bearer-authenticated GET and decodes a 2xx JSON body
// into out. Non-2xx statuses are returned without decoding.
func (c *Client) getJSON(ctx context.Context, rawURL, token string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
