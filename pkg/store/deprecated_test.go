package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/platinummonkey/docket/pkg/observability"
)

// Shims must warn and delegate; the core resolver behavior is covered by
// resolver_test.go, not re-tested through the shims.

func TestDeprecatedShimsWarnAndDelegate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	resolver := NewResolver(db, observability.NewLogger(observability.WarnLevel, &buf))
	ctx := context.Background()

	id, ok := resolver.GetCaseFileIDFromEmailID(ctx, 42)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Contains(t, buf.String(), "GetCaseFileIDFromEmailID")

	buf.Reset()
	id, ok = resolver.GetCaseFileIDFromDocumentID(ctx, "7")
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
	assert.Contains(t, buf.String(), "GetCaseFileIDFromDocumentID")

	buf.Reset()
	results, err := resolver.GetCaseFileIDsBatch(ctx, []BatchRequest{{CaseFileID: 1}})
	require.NoError(t, err)
	assert.Equal(t, []BatchResult{{CaseFileID: 1}}, results)
	assert.Contains(t, buf.String(), "GetCaseFileIDsBatch")

	assert.NoError(t, mock.ExpectationsWereMet())
}
