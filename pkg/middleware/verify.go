package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/platinummonkey/docket/pkg/httputil"
	"github.com/platinummonkey/docket/pkg/observability"
)

// TokenVerifier checks bearer token signatures against the identity
// provider's published keys at ingress. Everything behind it may decode
// tokens without re-verifying.
type TokenVerifier struct {
	verifier *oidc.IDTokenVerifier
	logger   *observability.Logger
}

// NewTokenVerifier discovers the provider's configuration from issuerURL and
// builds a verifier for tokens issued to clientID.
func NewTokenVerifier(ctx context.Context, issuerURL, clientID string, logger *observability.Logger) (*TokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("identity provider discovery failed: %w", err)
	}
	return &TokenVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		logger:   logger,
	}, nil
}

// Handler rejects requests whose bearer token is missing or fails
// verification. The rejection body matches the authorization contract.
func (v *TokenVerifier) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := httputil.BearerToken(r)
		if token == "" {
			httputil.WriteJSON(w, http.StatusUnauthorized, RejectionBody{Error: ReasonNoToken})
			return
		}

		if _, err := v.verifier.Verify(r.Context(), token); err != nil {
			v.logger.WithError(err).Debug("bearer token verification failed")
			httputil.WriteJSON(w, http.StatusUnauthorized, RejectionBody{Error: ReasonNoToken})
			return
		}

		next.ServeHTTP(w, r)
	})
}
