package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-email-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"email": "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": "email"}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"invalidated": true,
		"code":        "fresh-code",
		"email":       "a@b.com",
	}
	// Call twice to verify determinism.
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)

	// Keys must be sorted: code < email < invalidated
	assert.Equal(t, "code", ue1.Names["#f0"])
	assert.Equal(t, "email", ue1.Names["#f1"])
	assert.Equal(t, "invalidated", ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"invalidated": true})
	require.NoError(t, err)
	av, ok := ue.Values[":v0"]
	require.True(t, ok)
	boolVal, isBool := av.(*types.AttributeValueMemberBOOL)
	require.True(t, isBool)
	assert.True(t, boolVal.Value)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestBuildRecordFilter_Empty(t *testing.T) {
	expr, names, values := buildRecordFilter(domain.RecordFilter{})
	assert.Empty(t, expr)
	assert.Nil(t, names)
	assert.Nil(t, values)
}

func TestBuildRecordFilter_CodeAndInvalidated(t *testing.T) {
	code := "code-1"
	invalidated := false
	expr, names, values := buildRecordFilter(domain.RecordFilter{Code: &code, Invalidated: &invalidated})

	assert.Equal(t, "#code = :code AND #invalidated = :invalidated", expr)
	assert.Equal(t, "code", names["#code"])
	assert.Equal(t, "invalidated", names["#invalidated"])

	codeVal, ok := values[":code"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "code-1", codeVal.Value)
	boolVal, ok := values[":invalidated"].(*types.AttributeValueMemberBOOL)
	require.True(t, ok)
	assert.False(t, boolVal.Value)
}

func TestBuildRecordFilter_TimeBoundsExcluded(t *testing.T) {
	// issued_at ranges are applied client-side via RecordFilter.Matches,
	// never in the FilterExpression.
	code := "code-1"
	since := time.Now().UTC().Add(-24 * time.Hour)
	f := domain.RecordFilter{Code: &code, IssuedAfter: &since}
	expr, _, _ := buildRecordFilter(f)
	assert.NotContains(t, expr, "issued_at")
}
