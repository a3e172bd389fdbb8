package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/docket/pkg/observability"
)

// ProviderKeycloak is the provider name recorded in the user_identities join
// table for the external identity provider.
const ProviderKeycloak = "keycloak"

// IdentityMapper bridges local case file IDs and the external identity
// provider's subject IDs.
type IdentityMapper struct {
	db       *sql.DB
	resolver *Resolver
	logger   *observability.Logger
}

// NewIdentityMapper creates a new identity mapper sharing the resolver's
// database handle
func NewIdentityMapper(db *sql.DB, resolver *Resolver, logger *observability.Logger) *IdentityMapper {
	return &IdentityMapper{db: db, resolver: resolver, logger: logger}
}

// UserIDFromUnitID resolves a document unit or email reference to the case
// file ID owning that unit. A missing record is a soft miss (found=false,
// nil error); a store failure is logged and returned wrapped.
func (m *IdentityMapper) UserIDFromUnitID(ctx context.Context, ref interface{}) (int64, bool, error) {
	unitID, ok := m.resolver.Resolve(ctx, ref)
	if !ok {
		return 0, false, nil
	}

	query := `SELECT case_file_id FROM document_units WHERE id = $1`
	var caseID int64
	err := m.db.QueryRowContext(ctx, query, unitID).Scan(&caseID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		m.logger.WithOperation("user_id_from_unit_id").
			WithField("unit_id", unitID).
			WithError(err).
			Error("document unit lookup failed")
		return 0, false, fmt.Errorf("document unit lookup failed: %w", err)
	}
	return caseID, true, nil
}

// KeycloakUserIDFromUserID looks up the external identity provider subject
// for a case file ID via the provider-filtered join table.
func (m *IdentityMapper) KeycloakUserIDFromUserID(ctx context.Context, caseID int64) (string, bool, error) {
	query := `SELECT external_id FROM user_identities WHERE case_file_id = $1 AND provider = $2`
	var externalID string
	err := m.db.QueryRowContext(ctx, query, caseID, ProviderKeycloak).Scan(&externalID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		m.logger.WithOperation("keycloak_user_id_from_user_id").
			WithField("case_file_id", caseID).
			WithError(err).
			Error("identity join lookup failed")
		return "", false, fmt.Errorf("identity join lookup failed: %w", err)
	}
	return externalID, true, nil
}

// UserIDFromKeycloakID is the reverse lookup: external subject to local case
// file ID. Used by the session accessor to derive the authenticated user's
// own case from a bearer token subject.
func (m *IdentityMapper) UserIDFromKeycloakID(ctx context.Context, subject string) (int64, bool, error) {
	query := `SELECT case_file_id FROM user_identities WHERE external_id = $1 AND provider = $2`
	var caseID int64
	err := m.db.QueryRowContext(ctx, query, subject, ProviderKeycloak).Scan(&caseID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		m.logger.WithOperation("user_id_from_keycloak_id").
			WithField("subject", subject).
			WithError(err).
			Error("identity join lookup failed")
		return 0, false, fmt.Errorf("identity join lookup failed: %w", err)
	}
	return caseID, true, nil
}
