package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/platinummonkey/docket/pkg/observability"
)

// BatchRequest is one entry of a batched resolution request. CaseFileID may
// be a number, a numeric string, or a v4 UUID string.
type BatchRequest struct {
	CaseFileID interface{} `json:"case_file_id"`
}

// BatchResult is one resolved entry of a batched resolution response.
type BatchResult struct {
	CaseFileID int64 `json:"case_file_id"`
}

// Resolver maps heterogeneous case file references to canonical local IDs.
type Resolver struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewResolver creates a new identifier resolver
func NewResolver(db *sql.DB, logger *observability.Logger) *Resolver {
	return &Resolver{db: db, logger: logger}
}

// Resolve maps a case file reference to its canonical local ID.
//
// Numeric values (including zero and negative) and numeric strings resolve
// without touching the store. v4 UUID strings trigger a single lookup against
// the email and document property linkage columns. Anything else is a miss.
// Store errors are logged and reported as a miss; Resolve never panics.
func (r *Resolver) Resolve(ctx context.Context, ref interface{}) (int64, bool) {
	if id, ok := numericRef(ref); ok {
		return id, true
	}

	s, ok := ref.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)

	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, true
	}

	if !isV4UUID(s) {
		return 0, false
	}

	id, err := r.lookupUUID(ctx, s)
	if err != nil {
		if err != sql.ErrNoRows {
			r.logger.WithOperation("resolve_case_file_id").
				WithField("uuid", s).
				WithError(err).
				Error("case file lookup failed")
		}
		return 0, false
	}
	return id, true
}

// ResolveBatch resolves many case file references in at most one store round
// trip. Numeric entries resolve locally; all UUID-shaped entries share one
// batched query. Unresolvable entries are dropped silently. Output order is
// stable for identical input: numeric entries first in input order, then UUID
// hits in input order.
//
// Unlike Resolve, store errors propagate to the caller.
func (r *Resolver) ResolveBatch(ctx context.Context, reqs []BatchRequest) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(reqs))
	var uuids []string

	for _, req := range reqs {
		if id, ok := numericRef(req.CaseFileID); ok {
			results = append(results, BatchResult{CaseFileID: id})
			continue
		}
		s, ok := req.CaseFileID.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			results = append(results, BatchResult{CaseFileID: id})
			continue
		}
		if isV4UUID(s) {
			uuids = append(uuids, s)
		}
	}

	if len(uuids) == 0 {
		return results, nil
	}

	byUUID, err := r.lookupUUIDBatch(ctx, uuids)
	if err != nil {
		return nil, fmt.Errorf("batch case file resolution failed: %w", err)
	}

	for _, u := range uuids {
		if id, ok := byUUID[u]; ok {
			results = append(results, BatchResult{CaseFileID: id})
		}
	}

	return results, nil
}

// lookupUUID resolves a single UUID reference against both linkage columns
func (r *Resolver) lookupUUID(ctx context.Context, ref string) (int64, error) {
	query := `
		SELECT case_file_id
		FROM document_units
		WHERE email_id = $1 OR document_property_id = $1
		LIMIT 1
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, ref).Scan(&id)
	return id, err
}

// lookupUUIDBatch resolves all UUID references in one query and returns a
// reference-to-case-ID map covering both linkage columns
func (r *Resolver) lookupUUIDBatch(ctx context.Context, refs []string) (map[string]int64, error) {
	query := `
		SELECT email_id, document_property_id, case_file_id
		FROM document_units
		WHERE email_id = ANY($1) OR document_property_id = ANY($1)
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(refs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byUUID := make(map[string]int64, len(refs))
	for rows.Next() {
		var emailID, propertyID sql.NullString
		var caseID int64
		if err := rows.Scan(&emailID, &propertyID, &caseID); err != nil {
			return nil, err
		}
		if emailID.Valid {
			byUUID[emailID.String] = caseID
		}
		if propertyID.Valid {
			byUUID[propertyID.String] = caseID
		}
	}

	return byUUID, rows.Err()
}

// numericRef reports whether ref is already a numeric case file ID. Zero and
// negative values are valid IDs here; callers must not treat them as missing.
func numericRef(ref interface{}) (int64, bool) {
	switch v := ref.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		return wholeFloat(float64(v))
	case float64:
		// JSON numbers decode as float64
		return wholeFloat(v)
	default:
		return 0, false
	}
}

func wholeFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// isV4UUID reports whether s has the shape of a version 4 UUID
func isV4UUID(s string) bool {
	u, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return u.Version() == 4
}
