package keycloak

import (
	"encoding/json"
	"time"
)

// Config holds the identity provider connection settings
type Config struct {
	// BaseURL is the provider root, e.g. "https://id.example.com"
	BaseURL string
	// Realm is the provider realm containing the case file resources
	Realm string
	// ClientID is the resource server client protecting case files; it is
	// also the audience of UMA ticket exchanges
	ClientID string
	// ClientSecret authenticates the client-credentials grant
	ClientSecret string
	// Timeout bounds every outbound HTTP call; requests must not hang
	Timeout time.Duration
}

// DefaultTimeout is applied when Config.Timeout is zero
const DefaultTimeout = 10 * time.Second

// ResourceOwner is the owner field of a provider resource. The provider
// accepts a bare user ID on creation but returns an {"id": ...} object on
// reads; both shapes unmarshal to the ID string.
type ResourceOwner string

// UnmarshalJSON accepts both the string and object wire shapes
func (o *ResourceOwner) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = ResourceOwner(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*o = ResourceOwner(obj.ID)
	return nil
}

// MarshalJSON always emits the bare ID string
func (o ResourceOwner) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(o))
}

// Resource is the provider's representation of a protectable case file.
// Field names follow the resource_set wire format exactly.
type Resource struct {
	ID         string              `json:"_id,omitempty"`
	Name       string              `json:"name"`
	Type       string              `json:"type,omitempty"`
	Owner      ResourceOwner       `json:"owner,omitempty"`
	Scopes     []string            `json:"resource_scopes,omitempty"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// Permission is one entry of an RPT's authorization.permissions claim
type Permission struct {
	ResourceID   string   `json:"rsid"`
	ResourceName string   `json:"rsname"`
	Scopes       []string `json:"scopes"`
}

// Entitlement is the outcome of one UMA ticket exchange
type Entitlement struct {
	// Granted is true only when the RPT carried a present, array-typed,
	// non-empty permissions claim
	Granted bool
	// Permissions are the granted entries, normalized from the RPT
	Permissions []Permission
	// Status is the token endpoint's HTTP status, for logging
	Status int
}
