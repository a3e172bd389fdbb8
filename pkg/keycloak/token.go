package keycloak

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// DecodePermissions extracts the authorization.permissions claim from a
// token without verifying its signature. The second return reports whether
// the claim was present and array-typed; a grant decision requires both that
// and a non-empty array, never mere absence of a denial.
//
// Decode-only on purpose: the tokens inspected here come from the trusted
// token endpoint or were verified upstream at ingress.
func DecodePermissions(token string) ([]Permission, bool, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, false, fmt.Errorf("token decoding failed: %w", err)
	}

	authClaim, ok := claims["authorization"].(map[string]interface{})
	if !ok {
		return nil, false, nil
	}
	rawPerms, ok := authClaim["permissions"].([]interface{})
	if !ok {
		// Present but not array-typed counts as absent
		return nil, false, nil
	}

	perms := make([]Permission, 0, len(rawPerms))
	for _, raw := range rawPerms {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		perm := Permission{}
		if rsid, ok := entry["rsid"].(string); ok {
			perm.ResourceID = rsid
		}
		if rsname, ok := entry["rsname"].(string); ok {
			perm.ResourceName = rsname
		}
		if rawScopes, ok := entry["scopes"].([]interface{}); ok {
			for _, s := range rawScopes {
				if scope, ok := s.(string); ok {
					perm.Scopes = append(perm.Scopes, scope)
				}
			}
		}
		perms = append(perms, perm)
	}

	return perms, true, nil
}

// DecodeSubject extracts the sub claim from a token without verification
func DecodeSubject(token string) (string, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("token decoding failed: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("token subject decoding failed: %w", err)
	}
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
